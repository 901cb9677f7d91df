package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the dispatcher's error taxonomy (spec §7).
var (
	// ErrModelMissing - a classifier model file is absent from disk; the
	// operator must run the training command named in the error message.
	ErrModelMissing = errors.New("model missing")

	// ErrModelLoadError - a classifier model file exists but failed to parse/load.
	ErrModelLoadError = errors.New("model load error")

	// ErrNERWarning - a NER extraction step degraded but the turn can continue
	// with whatever entities were recovered.
	ErrNERWarning = errors.New("ner warning")

	// ErrNERError - a NER extraction step failed outright for this turn.
	ErrNERError = errors.New("ner error")

	// ErrUnsupportedLanguage - the classifier reported a locale the core has
	// no fallback/skill configuration for.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrIntentNotFound - neither the main classifier nor the fallback
	// matcher produced an intent for this utterance.
	ErrIntentNotFound = errors.New("intent not found")

	// ErrOutOfTopic - the utterance didn't match the expectations of an
	// active slot-filling or action-loop context; the context is cleared.
	ErrOutOfTopic = errors.New("out of topic")

	// ErrExecutorError - the Brain executor raised while running a skill action.
	ErrExecutorError = errors.New("executor error")
)

func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func ModelMissing(command string) error {
	return fmt.Errorf("model missing, retrain with: %s: %w", command, ErrModelMissing)
}

func ModelLoadError(message string) error {
	return fmt.Errorf("%s: %w", message, ErrModelLoadError)
}

func NERWarning(code string, message string) error {
	return fmt.Errorf("[%s] %s: %w", code, message, ErrNERWarning)
}

func NERError(code string, message string) error {
	return fmt.Errorf("[%s] %s: %w", code, message, ErrNERError)
}

func UnsupportedLanguage(locale string) error {
	return fmt.Errorf("unsupported language %q: %w", locale, ErrUnsupportedLanguage)
}

func IntentNotFound() error {
	return fmt.Errorf("intent not found: %w", ErrIntentNotFound)
}

func OutOfTopic(message string) error {
	return fmt.Errorf("%s: %w", message, ErrOutOfTopic)
}

func ExecutorError(message string) error {
	return fmt.Errorf("%s: %w", message, ErrExecutorError)
}
