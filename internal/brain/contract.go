// Package brain declares the contract for the external "Brain" executor
// that actually runs a selected skill action and produces the spoken
// reply (spec.md §6). The executor itself is out of scope; this package
// only carries the shapes the Dispatcher, Slot Filler, and Action Loop
// Handler exchange with it.
package brain

import (
	"context"

	"github.com/harunnryd/nimbus/internal/conversation"
)

// NextActionDescriptor names the action an executor wants to rotate the
// active context into, optionally re-entering a loop.
type NextActionDescriptor struct {
	Name string `json:"next_action,omitempty"`
	Loop bool   `json:"loop,omitempty"`
}

// Core carries the executor's control-flow signals back to the
// dispatch state machine (spec.md §4.6).
type Core struct {
	Restart        bool `json:"restart,omitempty"`
	IsInActionLoop bool `json:"isInActionLoop"`
}

// ExecutionResult is what Execute returns.
type ExecutionResult struct {
	ExecutionTime      float64                        `json:"executionTime"`
	Classification     conversation.Classification     `json:"classification"`
	NextAction         *NextActionDescriptor           `json:"action,omitempty"`
	Core               Core                            `json:"core"`
	Utterance          string                          `json:"utterance"`
	ConfigDataFilePath string                          `json:"configDataFilePath"`
	Slots              map[string]conversation.SlotValue `json:"slots,omitempty"`
}

// Executor is the declared external collaborator that runs a skill
// action. It is never implemented here; production wiring supplies a
// real adapter.
type Executor interface {
	// Execute runs the selected action and returns its result.
	Execute(ctx context.Context, nluResult conversation.NLUResult) (ExecutionResult, error)

	// Talk speaks a phrase, optionally preserving the typing indicator.
	Talk(ctx context.Context, phrase string, preserveTyping bool) error

	// Wernicke resolves a phrase template by key (opaque to the core).
	Wernicke(key, subkey string, vars map[string]any) (string, error)

	// Lang reports the executor's current locale.
	Lang() string
}
