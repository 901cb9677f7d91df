package classifier

import (
	"context"
	"os"

	"github.com/harunnryd/nimbus/internal/conversation"
)

// FakeClassifier is a deterministic in-memory Classifier used by tests and
// by the repl/serve commands when no real classifier library is wired in.
// It never performs real NLU inference.
type FakeClassifier struct {
	Loaded    bool
	SpellCheck bool

	Synonyms map[string][]SynonymEntry // lang -> entries

	// Responses lets tests script what Process returns per utterance.
	Responses map[string]Result

	// Domains maps "{locale}:{intent}" -> domain for GetIntentDomain.
	Domains map[string]string

	// Mandatory maps intent -> slots for GetMandatorySlots.
	Mandatory map[string][]MandatorySlot

	// Entities maps utterance -> entities for ExtractEntities.
	Entities map[string][]conversation.Entity
}

func NewFakeClassifier() *FakeClassifier {
	return &FakeClassifier{
		Synonyms:  make(map[string][]SynonymEntry),
		Responses: make(map[string]Result),
		Domains:   make(map[string]string),
		Mandatory: make(map[string][]MandatorySlot),
		Entities:  make(map[string][]conversation.Entity),
	}
}

func (f *FakeClassifier) Load(_ context.Context, path string, spellCheck bool) error {
	if path == "" {
		return os.ErrNotExist
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	f.Loaded = true
	f.SpellCheck = spellCheck
	return nil
}

func (f *FakeClassifier) Process(_ context.Context, utterance string) (Result, error) {
	if r, ok := f.Responses[utterance]; ok {
		return r, nil
	}
	return Result{Intent: "None", Score: 0}, nil
}

func (f *FakeClassifier) RegisterSynonym(lang, entity, value string, surfaceForms []string) error {
	for _, e := range f.Synonyms[lang] {
		if e.Entity == entity && e.Value == value {
			return nil
		}
	}
	f.Synonyms[lang] = append(f.Synonyms[lang], SynonymEntry{Entity: entity, Value: value, SurfaceForms: surfaceForms})
	return nil
}

func (f *FakeClassifier) GetIntentDomain(locale, intent string) (string, error) {
	return f.Domains[locale+":"+intent], nil
}

func (f *FakeClassifier) GetMandatorySlots(intent string) ([]MandatorySlot, error) {
	return f.Mandatory[intent], nil
}

func (f *FakeClassifier) AddEntities(names []string, lang string) error {
	return nil
}

func (f *FakeClassifier) ExtractEntities(_ context.Context, utterance string) ([]conversation.Entity, error) {
	return f.Entities[utterance], nil
}
