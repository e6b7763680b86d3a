package parser

import (
	"log/slog"

	"github.com/dgnsrekt/tab_grouper/internal/types"
)

// Parser extracts clusters from oracle replies with one compiled grammar.
type Parser struct {
	grammar *Grammar
}

// New compiles the grammar into a Parser.
func New(h HeaderGrammar) (*Parser, error) {
	g, err := h.Compile()
	if err != nil {
		return nil, err
	}
	return &Parser{grammar: g}, nil
}

// Default returns a Parser using the default keyword grammar.
func Default() *Parser {
	return &Parser{grammar: HeaderGrammar{}.MustCompile()}
}

// Parse returns one ClusterSpec per header, in order of appearance. A reply
// without any header yields an empty, non-nil slice.
func (p *Parser) Parse(text string) []types.ClusterSpec {
	clusters := []types.ClusterSpec{}
	for sec := range p.grammar.Sections(text) {
		spec := types.ClusterSpec{Name: sec.Name, MemberURLs: []string{}}
		for u := range p.grammar.URLs(sec.Body(text)) {
			spec.MemberURLs = append(spec.MemberURLs, u)
		}
		clusters = append(clusters, spec)
	}

	if len(clusters) == 0 {
		slog.Info("parser found no cluster headers", "reply_chars", len(text))
		return clusters
	}
	slog.Debug("parser clusters", "count", len(clusters))
	return clusters
}
