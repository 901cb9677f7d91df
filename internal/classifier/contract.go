// Package classifier declares the Intent Classifier contract the core
// depends on (spec.md §6). The classification algorithm itself is an
// external collaborator and is never implemented here, only the
// lifecycle (load, readiness, synonym registration) the Model Loader and
// NER Gateway drive.
package classifier

import (
	"context"

	"github.com/harunnryd/nimbus/internal/conversation"
)

// Kind names one of the three classifier models the core loads.
type Kind string

const (
	KindGlobalResolvers Kind = "global_resolvers"
	KindSkillsResolvers Kind = "skills_resolvers"
	KindMain            Kind = "main"
)

// RawClassification is one candidate the classifier scored an utterance
// against (spec.md §6: "classifications:[{intent,score}]").
type RawClassification struct {
	Intent string
	Score  float64
}

// Result is the raw shape the Intent Classifier returns for one
// utterance (spec.md §6).
type Result struct {
	Locale          string
	Answers         []string
	Classifications []RawClassification
	Score           float64
	Intent          string
	Domain          string
}

// Classifier is the opaque intent-classification capability the core
// consumes. Implementations are provided externally; the core only ever
// holds this interface.
type Classifier interface {
	// Load parses a model file from disk and makes the classifier ready
	// to Process utterances. spellCheck configures the loaded model per
	// spec.md §4.1.
	Load(ctx context.Context, path string, spellCheck bool) error

	// Process classifies one utterance.
	Process(ctx context.Context, utterance string) (Result, error)

	// ExtractEntities runs the classifier's own NER pass over an
	// utterance (spec.md §6's opaque "ner" capability).
	ExtractEntities(ctx context.Context, utterance string) ([]conversation.Entity, error)

	// RegisterSynonym injects a surface-form synonym for an entity value
	// under lang. Append-only and idempotent per (entity, value) pair
	// (spec.md §4.2, §5, §9).
	RegisterSynonym(lang, entity, value string, surfaceForms []string) error

	// GetIntentDomain resolves the domain an intent belongs to under the
	// given locale.
	GetIntentDomain(locale, intent string) (string, error)

	// GetMandatorySlots returns the slot declarations an intent requires
	// before its action can run.
	GetMandatorySlots(intent string) ([]MandatorySlot, error)

	// AddEntities registers the builtin entity inventory the NER Gateway
	// exposes (spec.md §4.1).
	AddEntities(names []string, lang string) error
}

// MandatorySlot is the shape RouteSlotFilling needs to seed a fresh
// ActiveContext's slot ledger.
type MandatorySlot struct {
	Name           string
	ExpectedEntity string
	PickedQuestion string
	Suggestions    []string
}
