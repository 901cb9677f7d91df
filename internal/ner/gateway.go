// Package ner implements the NER Gateway (C2): it merges the main
// classifier's own entity recognition with auxiliary entities recovered
// from the external tokenization service, and owns the builtin entity
// inventory (spec.md §4.2).
package ner

import (
	"context"
	"strings"

	"github.com/harunnryd/nimbus/internal/classifier"
	nimbusErrors "github.com/harunnryd/nimbus/internal/errors"
	"github.com/harunnryd/nimbus/internal/conversation"
	"github.com/harunnryd/nimbus/internal/skillconfig"
	"github.com/harunnryd/nimbus/internal/tokenizer"
)

// builtinEntities is the static inventory of built-in entity names the
// main classifier should activate (spec.md §4.1 "GetBuiltinEntities()").
var builtinEntities = []string{
	"email", "url", "date", "time", "duration", "number", "percentage",
	"ordinal", "language", "color", "temperature", "currency",
}

// Gateway is the NER Gateway. It is constructed once over the main
// classifier and the tokenization service client.
type Gateway struct {
	Main       classifier.Classifier
	Tokenizer  tokenizer.Client
	Synonyms   *classifier.SynonymCache
	Lang       func() string
}

func NewGateway(main classifier.Classifier, tok tokenizer.Client, synonyms *classifier.SynonymCache, currentLang func() string) *Gateway {
	return &Gateway{Main: main, Tokenizer: tok, Synonyms: synonyms, Lang: currentLang}
}

// GetBuiltinEntities returns the static inventory the Model Loader
// registers against the main classifier at load time.
func (g *Gateway) GetBuiltinEntities() []string {
	return builtinEntities
}

// ExtractEntities runs the main classifier's NER over utterance. The
// skill's per-language config is read only to check that it is readable;
// no entity definitions are taken from it, so the returned entities come
// from the main classifier alone. NER errors are returned as tagged errors so the caller
// can pick the right log channel / spoken error code without failing the
// turn outright.
func (g *Gateway) ExtractEntities(ctx context.Context, configPath, utterance string) ([]conversation.Entity, error) {
	if _, err := skillconfig.LoadSkillConfig(configPath); err != nil {
		return nil, nimbusErrors.NERWarning("config_unreadable", "skill config unreadable: "+err.Error())
	}

	entities, err := g.Main.ExtractEntities(ctx, utterance)
	if err != nil {
		return nil, nimbusErrors.NERError("classifier_ner_failed", err.Error())
	}

	return entities, nil
}

// MergeSpacyEntities requests auxiliary entities from the tokenization
// service and registers each as a synonym under the current language, so
// the classifier recognizes proper nouns it was never trained on
// (spec.md §4.2). Idempotent per (entity, value) pair, R1.
func (g *Gateway) MergeSpacyEntities(ctx context.Context, utterance string) error {
	if g.Tokenizer == nil {
		return nil
	}

	entities, err := g.Tokenizer.GetSpacyEntities(ctx, utterance)
	if err != nil {
		return nimbusErrors.NERWarning("tokenizer_unreachable", err.Error())
	}

	lang := g.Lang()
	for _, e := range entities {
		value, _ := e.Resolution["value"].(string)
		if value == "" {
			continue
		}

		fresh, err := g.Synonyms.Register(lang, e.Entity, value, []string{titlecase(value)})
		if err != nil {
			return nimbusErrors.NERWarning("synonym_cache_write_failed", err.Error())
		}
		if fresh {
			if err := g.Main.RegisterSynonym(lang, e.Entity, value, []string{titlecase(value)}); err != nil {
				return nimbusErrors.NERWarning("synonym_registration_failed", err.Error())
			}
		}
	}
	return nil
}

func titlecase(s string) string {
	parts := strings.Fields(s)
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
