// Package slotfill implements the Slot Filler sub-state-machine (C5):
// it asks the user for missing mandatory entities across turns and,
// once every slot is filled, hands the reconstructed utterance to the
// Brain executor (spec.md §4.5).
package slotfill

import (
	"context"

	"github.com/harunnryd/nimbus/internal/brain"
	"github.com/harunnryd/nimbus/internal/classifier"
	"github.com/harunnryd/nimbus/internal/conversation"
	nimbusErrors "github.com/harunnryd/nimbus/internal/errors"
	"github.com/harunnryd/nimbus/internal/socket"
)

// NERExtractor is the narrow slice of the NER Gateway the Slot Filler
// needs: entity extraction scoped to one skill's config.
type NERExtractor interface {
	ExtractEntities(ctx context.Context, configPath, utterance string) ([]conversation.Entity, error)
}

// Filler drives slot filling over a Conversation Store.
type Filler struct {
	Store      *conversation.Store
	NER        NERExtractor
	Classifier classifier.Classifier
	Brain      brain.Executor
	Socket     socket.Server
}

func NewFiller(store *conversation.Store, ner NERExtractor, cls classifier.Classifier, exec brain.Executor, sock socket.Server) *Filler {
	return &Filler{Store: store, NER: ner, Classifier: cls, Brain: exec, Socket: sock}
}

// Handle implements spec.md §4.5's SlotFill state machine.
//
// ok=false means step 1 applied: there is nothing to fill and the
// Dispatcher should continue down its normal path. ok=true with
// result=nil means the turn was consumed (a question was asked, or the
// context went out of topic); ok=true with result set carries the
// Brain's final answer.
func (f *Filler) Handle(ctx context.Context, utterance string) (result *conversation.NLUResult, ok bool, err error) {
	active := f.Store.ActiveContext()
	if active == nil || active.NextAction == nil {
		return nil, false, nil
	}

	entities, nerErr := f.NER.ExtractEntities(ctx, active.ConfigDataFilePath, utterance)
	if nerErr != nil {
		// NER errors don't corrupt the turn (spec.md §7 propagation
		// rule); continue with whatever was extracted, which is none.
		entities = nil
	}

	slot := f.Store.GetNotFilledSlot()
	if slot != nil && hasEntity(entities, slot.ExpectedEntity) {
		f.Store.SetSlots(entities)

		if next := f.Store.GetNotFilledSlot(); next != nil {
			f.ask(ctx, next)
			return nil, true, nil
		}
	}

	if !f.Store.AreSlotsAllFilled() {
		f.outOfTopic(ctx)
		f.Store.CleanActiveContext()
		return nil, true, nil
	}

	final := conversation.NLUResult{
		Utterance:          active.OriginalUtterance,
		ConfigDataFilePath:  active.ConfigDataFilePath,
		CurrentEntities:     active.CurrentEntities,
		Entities:            active.Entities,
		Classification: conversation.Classification{
			Domain:     active.Domain,
			Skill:      active.Skill,
			Action:     active.NextAction.Name,
			Confidence: 1,
		},
	}
	f.Store.CleanActiveContext()

	if f.Brain == nil {
		return &final, true, nil
	}

	executed, execErr := f.Brain.Execute(ctx, final)
	if execErr != nil {
		return nil, true, nimbusErrors.ExecutorError(execErr.Error())
	}
	final.ProcessingTime = executed.ExecutionTime
	return &final, true, nil
}

// RouteSlotFilling decides whether slot filling should begin after a
// fresh classification (spec.md §4.5). When mandatory slots exist, it
// seeds the active context with them and asks the first question.
//
// Preserved quirk: this always asks its question and returns true, even
// if the utterance that triggered the fresh classification already
// carried the mandatory entity. spec.md §9 Open Question (a) flags
// this as unresolved and instructs us to keep the behavior as-is.
func (f *Filler) RouteSlotFilling(ctx context.Context, intent string) (bool, error) {
	mandatory, err := f.Classifier.GetMandatorySlots(intent)
	if err != nil {
		return false, err
	}
	if len(mandatory) == 0 {
		return false, nil
	}

	active := f.Store.ActiveContext()
	if active == nil {
		return false, nil
	}

	active.Slots = make(map[string]*conversation.Slot, len(mandatory))
	active.SlotOrder = make([]string, 0, len(mandatory))
	for _, m := range mandatory {
		active.Slots[m.Name] = &conversation.Slot{
			Name:           m.Name,
			ExpectedEntity: m.ExpectedEntity,
			PickedQuestion: m.PickedQuestion,
			Suggestions:    m.Suggestions,
		}
		active.SlotOrder = append(active.SlotOrder, m.Name)
	}
	active.NextAction = &conversation.NextAction{Name: intentAction(intent)}

	f.ask(ctx, active.Slots[active.SlotOrder[0]])
	return true, nil
}

func (f *Filler) ask(ctx context.Context, slot *conversation.Slot) {
	if f.Brain != nil {
		_ = f.Brain.Talk(ctx, slot.PickedQuestion, false)
	}
	if f.Socket != nil {
		f.Socket.IsTyping(false)
		f.Socket.Suggest(slot.Suggestions)
	}
}

func (f *Filler) outOfTopic(ctx context.Context) {
	if f.Brain != nil {
		_ = f.Brain.Talk(ctx, "random_context_out_of_topic", false)
	}
	if f.Socket != nil {
		f.Socket.IsTyping(false)
	}
}

func hasEntity(entities []conversation.Entity, name string) bool {
	for _, e := range entities {
		if e.Name == name {
			return true
		}
	}
	return false
}

func intentAction(intent string) string {
	for i := len(intent) - 1; i >= 0; i-- {
		if intent[i] == '.' {
			return intent[i+1:]
		}
	}
	return intent
}
