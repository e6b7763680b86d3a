package parser

import (
	"iter"
	"regexp"
	"strings"
)

// urlBody allows one level of balanced parentheses, as in Wikipedia titles.
const urlBody = `(?:https?://|www\.)(?:[^\s()<>\[\]]|\([^\s()<>\[\]]*\))+`

// wrappedURLPattern matches "[label](url)" or "(url)"; the link alternative
// is tried first so a link's parenthesized target is not reported twice.
var wrappedURLPattern = regexp.MustCompile(
	`(?i)\[[^\]\n]*\]\(\s*<?(` + urlBody + `)>?\s*\)` +
		`|\(\s*<?(` + urlBody + `)>?\s*\)`)

var bareURLPattern = regexp.MustCompile(
	`(?i)\[[^\]\n]*\]\(\s*<?(` + urlBody + `)>?\s*\)` +
		`|\(\s*<?(` + urlBody + `)>?\s*\)` +
		`|(` + urlBody + `)`)

// URLs yields candidate member URLs of one body span in order of
// appearance. Duplicates are kept.
func (g *Grammar) URLs(body string) iter.Seq[string] {
	re := wrappedURLPattern
	if g.bareURLs {
		re = bareURLPattern
	}
	return func(yield func(string) bool) {
		for _, sub := range re.FindAllStringSubmatch(body, -1) {
			for _, candidate := range sub[1:] {
				if candidate == "" {
					continue
				}
				if u := trimURL(candidate); u != "" {
					if !yield(u) {
						return
					}
				}
				break
			}
		}
	}
}

// trimURL drops sentence punctuation an oracle tends to glue onto URLs.
func trimURL(u string) string {
	return strings.TrimRight(u, ".,;:!?'\"*_`")
}
