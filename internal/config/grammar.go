package config

import (
	"fmt"
	"os"

	"github.com/dgnsrekt/tab_grouper/internal/parser"
	"gopkg.in/yaml.v3"
)

// LoadHeaderGrammar reads a header grammar YAML file. An empty path returns
// the default grammar.
//
//	keywords: [Cluster, Group, Topic]
//	require_bold: false
//	bare_urls: true
func LoadHeaderGrammar(path string) (parser.HeaderGrammar, error) {
	if path == "" {
		return parser.HeaderGrammar{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return parser.HeaderGrammar{}, fmt.Errorf("header grammar config: %w", err)
	}
	var g parser.HeaderGrammar
	if err := yaml.Unmarshal(data, &g); err != nil {
		return parser.HeaderGrammar{}, fmt.Errorf("header grammar config: %w", err)
	}
	if _, err := g.Compile(); err != nil {
		return parser.HeaderGrammar{}, fmt.Errorf("header grammar config: %w", err)
	}
	return g, nil
}
