// Package parse turns free-text chat messages into typed ledger commands:
// an ordered-pattern amount extractor plus a priority-dispatch intent
// classifier.
package parse

import (
	"regexp"
	"strings"

	"jizhang/internal/core"
)

// amountPatterns is an ordered priority list, not an exhaustive grammar.
// The first pattern that matches wins; later patterns are never consulted
// even if they would also match. A fragment holding both "50元" and a
// trailing "120" therefore extracts 50.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[元塊錢]`),    // 120元, 50塊, 30錢
	regexp.MustCompile(`(?:NT)?\$\s*(\d+(?:\.\d+)?)`), // NT$100, $80
	regexp.MustCompile(`花了?\s*(\d+(?:\.\d+)?)`),       // 花了60, 花60
	regexp.MustCompile(`(\d+(?:\.\d+)?)$`),            // trailing bare number
}

// ExtractAmount pulls the first amount a pattern can claim from text.
// The second return value is text with the matched span removed and
// whitespace collapsed (the expense reason). A pattern whose capture fails
// to parse as a positive decimal counts as no match and the next pattern
// is tried; no pattern matching at all returns ok=false.
func ExtractAmount(text string) (amount core.Money, residual string, ok bool) {
	for _, re := range amountPatterns {
		idx := re.FindStringSubmatchIndex(text)
		if idx == nil {
			continue
		}
		cents, err := core.ParseDecimalToCents(text[idx[2]:idx[3]])
		if err != nil {
			continue
		}
		rest := text[:idx[0]] + text[idx[1]:]
		return core.Money{Cents: cents}, collapseSpace(rest), true
	}
	return core.Money{}, collapseSpace(text), false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
