// Package actionloop implements the Action Loop Handler (C6): the
// sub-state-machine that repeatedly drives one action while it
// declares itself "in loop" (spec.md §4.6).
package actionloop

import (
	"context"
	"strings"

	"github.com/harunnryd/nimbus/internal/brain"
	"github.com/harunnryd/nimbus/internal/classifier"
	"github.com/harunnryd/nimbus/internal/conversation"
	nimbusErrors "github.com/harunnryd/nimbus/internal/errors"
	"github.com/harunnryd/nimbus/internal/skillconfig"
	"github.com/harunnryd/nimbus/internal/socket"
)

// NERExtractor is the narrow slice of the NER Gateway the Action Loop
// needs.
type NERExtractor interface {
	ExtractEntities(ctx context.Context, configPath, utterance string) ([]conversation.Entity, error)
}

// Handler drives an in-progress action loop over a Conversation Store.
type Handler struct {
	Store               *conversation.Store
	NER                 NERExtractor
	GlobalResolvers     classifier.Classifier
	SkillResolvers      classifier.Classifier
	GlobalResolversRoot string
	Brain               brain.Executor
	Socket              socket.Server
}

func NewHandler(store *conversation.Store, ner NERExtractor, global, skill classifier.Classifier, globalResolversRoot string, exec brain.Executor, sock socket.Server) *Handler {
	return &Handler{
		Store:               store,
		NER:                 ner,
		GlobalResolvers:     global,
		SkillResolvers:      skill,
		GlobalResolversRoot: globalResolversRoot,
		Brain:               exec,
		Socket:              sock,
	}
}

// Handle implements spec.md §4.6's action-loop algorithm. redispatch,
// when non-empty, means the Dispatcher's trampoline must call Process
// again with that utterance; result, when non-nil, is the Brain's
// answer for this turn; both empty with a nil error means the loop
// aborted silently (step 6).
func (h *Handler) Handle(ctx context.Context, utterance string) (result *conversation.NLUResult, redispatch string, err error) {
	active := h.Store.ActiveContext()
	if active == nil {
		return nil, "", nil
	}

	entities, nerErr := h.NER.ExtractEntities(ctx, active.ConfigDataFilePath, utterance)
	if nerErr != nil {
		entities = nil
	}

	nluResult := conversation.NLUResult{
		Utterance:          utterance,
		ConfigDataFilePath: active.ConfigDataFilePath,
		CurrentEntities:    entities,
		Entities:           append(append([]conversation.Entity{}, active.Entities...), entities...),
		Slots:              slotValues(active),
		Classification: conversation.Classification{
			Domain:     active.Domain,
			Skill:      active.Skill,
			Action:     active.ActionName,
			Confidence: 1,
		},
	}

	cfg, cfgErr := skillconfig.LoadSkillConfig(active.ConfigDataFilePath)
	if cfgErr != nil {
		return nil, "", nimbusErrors.OutOfTopic("skill config unreadable: " + cfgErr.Error())
	}
	actionCfg, ok := cfg.Action(active.ActionName)
	if !ok || actionCfg.Loop == nil {
		return nil, "", nimbusErrors.OutOfTopic("action has no loop config")
	}
	expected := actionCfg.Loop.ExpectedItem

	matched, resolver, matchErr := h.matchExpectedItem(ctx, cfg, active, expected, utterance, entities)
	if matchErr != nil {
		return nil, "", matchErr
	}
	if !matched {
		h.outOfTopic(ctx)
		h.Store.CleanActiveContext()
		return nil, active.OriginalUtterance, nil
	}
	if resolver != nil {
		nluResult.Resolvers = []conversation.Resolver{*resolver}
	}

	if h.Brain == nil {
		return &nluResult, "", nil
	}

	executed, execErr := h.Brain.Execute(ctx, nluResult)
	if execErr != nil {
		// Step 6: any executor exception aborts the loop silently.
		return nil, "", nil
	}
	nluResult.ProcessingTime = executed.ExecutionTime

	if executed.Core.Restart {
		original := active.OriginalUtterance
		h.Store.CleanActiveContext()
		return nil, original, nil
	}

	if executed.NextAction == nil && !executed.Core.IsInActionLoop {
		h.Store.CleanActiveContext()
		return &nluResult, "", nil
	}

	if !executed.Core.IsInActionLoop {
		active.ActionName = executed.NextAction.Name
		active.IsInActionLoop = executed.NextAction.Loop
		h.Store.SetActiveContext(active)
	}

	return &nluResult, "", nil
}

// matchExpectedItem implements spec.md §4.6 step 3.
func (h *Handler) matchExpectedItem(ctx context.Context, cfg *skillconfig.SkillConfig, active *conversation.ActiveContext, expected struct {
	Name string `json:"name"`
	Type string `json:"type"`
}, utterance string, entities []conversation.Entity) (bool, *conversation.Resolver, error) {
	if expected.Type == "entity" {
		for _, e := range entities {
			if e.Name == expected.Name {
				return true, nil, nil
			}
		}
		return false, nil, nil
	}

	if !strings.Contains(expected.Type, "resolver") {
		return false, nil, nil
	}

	var resolverClassifier classifier.Classifier
	var isGlobal bool
	switch expected.Type {
	case "global_resolver":
		resolverClassifier = h.GlobalResolvers
		isGlobal = true
	case "skill_resolver":
		resolverClassifier = h.SkillResolvers
	default:
		return false, nil, nil
	}
	if resolverClassifier == nil {
		return false, nil, nil
	}

	result, err := resolverClassifier.Process(ctx, utterance)
	if err != nil {
		return false, nil, nil
	}

	parts := strings.Split(result.Intent, ".")
	if len(parts) < 3 || parts[0] != "resolver" {
		return false, nil, nil
	}
	middle, leaf := parts[1], parts[len(parts)-1]

	if isGlobal {
		if middle != "global" {
			return false, nil, nil
		}
		resolver, err := skillconfig.LoadGlobalResolver(h.GlobalResolversRoot, active.Lang, expected.Name)
		if err != nil {
			return false, nil, nil
		}
		value, ok := resolver.Resolve(leaf)
		if !ok {
			return false, nil, nil
		}
		return true, &conversation.Resolver{Name: expected.Name, Value: value}, nil
	}

	if middle != active.Skill {
		return false, nil, nil
	}
	value, ok := cfg.Resolve(expected.Name, leaf)
	if !ok {
		return false, nil, nil
	}
	return true, &conversation.Resolver{Name: expected.Name, Value: value}, nil
}

func slotValues(active *conversation.ActiveContext) map[string]conversation.SlotValue {
	if len(active.Slots) == 0 {
		return nil
	}
	values := make(map[string]conversation.SlotValue, len(active.Slots))
	for name, slot := range active.Slots {
		values[name] = conversation.SlotValue{Entity: slot.ExpectedEntity, Value: slot.Value, IsFilled: slot.IsFilled}
	}
	return values
}

func (h *Handler) outOfTopic(ctx context.Context) {
	if h.Brain != nil {
		_ = h.Brain.Talk(ctx, "random_context_out_of_topic", false)
	}
	if h.Socket != nil {
		h.Socket.IsTyping(false)
	}
}
