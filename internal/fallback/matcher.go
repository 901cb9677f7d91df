// Package fallback implements the deterministic keyword rule engine the
// Dispatcher falls back to when the main classifier emits "None"
// (spec.md §4.4).
package fallback

import (
	"strings"
	"unicode"

	"github.com/harunnryd/nimbus/internal/conversation"
)

// Rule is one entry in a language's fallback table: a classification
// that wins if every one of its words appears in the utterance's token
// set, in declaration order.
type Rule struct {
	Words  []string
	Domain string
	Skill  string
	Action string
}

// Match tokenizes the utterance by whitespace, lowercases it, strips
// leading and trailing punctuation from each token, and walks the table
// in order. The first rule whose words are all present wins.
// Pure: same utterance and table always produce the same result (R2).
func Match(utterance string, rules []Rule) (conversation.NLUResult, bool) {
	tokens := tokenize(utterance)

	for _, rule := range rules {
		if allPresent(rule.Words, tokens) {
			return conversation.NLUResult{
				Utterance:       utterance,
				CurrentEntities: []conversation.Entity{},
				Entities:        []conversation.Entity{},
				Classification: conversation.Classification{
					Domain:     rule.Domain,
					Skill:      rule.Skill,
					Action:     rule.Action,
					Confidence: 1,
				},
			}, true
		}
	}
	return conversation.NLUResult{}, false
}

func tokenize(utterance string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(utterance))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.TrimFunc(w, unicode.IsPunct)] = struct{}{}
	}
	return set
}

func allPresent(words []string, tokens map[string]struct{}) bool {
	for _, w := range words {
		if _, ok := tokens[strings.ToLower(w)]; !ok {
			return false
		}
	}
	return true
}
