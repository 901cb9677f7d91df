// Package dispatcher implements the Dispatcher (C8): the top-level
// pipeline that wires the Model Loader, NER Gateway, Conversation
// Store, Fallback Matcher, Slot Filler, Action Loop Handler, and
// Language Switcher together into the single `Process` entrypoint
// (spec.md §4.8).
package dispatcher

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/nimbus/internal/actionloop"
	"github.com/harunnryd/nimbus/internal/brain"
	"github.com/harunnryd/nimbus/internal/classifier"
	"github.com/harunnryd/nimbus/internal/concurrency"
	"github.com/harunnryd/nimbus/internal/conversation"
	nimbusErrors "github.com/harunnryd/nimbus/internal/errors"
	"github.com/harunnryd/nimbus/internal/fallback"
	"github.com/harunnryd/nimbus/internal/langswitch"
	"github.com/harunnryd/nimbus/internal/logger"
	"github.com/harunnryd/nimbus/internal/ner"
	"github.com/harunnryd/nimbus/internal/skillconfig"
	"github.com/harunnryd/nimbus/internal/slotfill"
	"github.com/harunnryd/nimbus/internal/socket"
	"github.com/harunnryd/nimbus/internal/telemetry"

	"github.com/oklog/ulid/v2"
)

// defaultSession is the lock key Process serializes on. spec.md's single
// active-context invariant (§3) means there's exactly one implicit
// session per Dispatcher, so SimpleSessionLockManager is keyed on this
// constant rather than a real session identifier.
const defaultSession = "default"

// Dispatcher wires C1–C7 together and produces the NLUResult for one
// utterance at a time. All operations on it are serialized per session
// (spec.md §5): Process acquires the session lock once per external call
// and never recurses into itself, using the trampoline in trampoline.go
// instead.
type Dispatcher struct {
	ModelLoader *classifier.ModelLoader
	Classifier  classifier.Classifier // the main classifier
	NER         *ner.Gateway
	Store       *conversation.Store
	Fallbacks   map[string][]fallback.Rule
	SlotFiller  *slotfill.Filler
	ActionLoop  *actionloop.Handler
	LangSwitch  *langswitch.Switcher
	Brain       brain.Executor
	Socket      socket.Server
	Telemetry   *telemetry.Client

	SkillsRoot           string
	SupportedLanguages   []string
	ContextBiasThreshold float64

	locks *concurrency.SimpleSessionLockManager
}

// NewDispatcher wires the Language Switcher's reconnect callback back
// into this Dispatcher's Process entrypoint (spec.md §4.7 step 5).
func NewDispatcher(d Dispatcher) *Dispatcher {
	out := &d
	out.locks = concurrency.NewSimpleSessionLockManager()
	if out.LangSwitch != nil {
		out.LangSwitch.Redispatch = func(utterance string) {
			if _, err := out.Process(context.Background(), utterance); err != nil {
				slog.Error("Redispatch after language switch failed", "error", err)
			}
		}
	}
	return out
}

// Process implements spec.md §4.8. It returns nil with no error on
// every terminal branch that doesn't produce an NLUResult (rejected
// turn, language switch in flight, slot question asked, action loop
// question or out-of-topic turn).
func (d *Dispatcher) Process(ctx context.Context, utterance string) (*conversation.NLUResult, error) {
	d.locks.Lock(defaultSession)
	defer d.locks.Unlock(defaultSession)

	turnID := ulid.Make().String()
	ctx = logger.WithTurnID(ctx, turnID)
	start := time.Now()

	current := utterance
	for {
		result, next, execTime, err := d.dispatchOnce(ctx, current)
		if next != nil {
			current = next.utterance
			continue
		}

		if result != nil {
			elapsed := time.Since(start).Seconds()
			result.ProcessingTime = elapsed
			result.NLUProcessingTime = elapsed - execTime
		}
		return result, err
	}
}

func (d *Dispatcher) dispatchOnce(ctx context.Context, utterance string) (result *conversation.NLUResult, next *redispatchSignal, execTime float64, err error) {
	if !d.ModelLoader.IsReady() {
		d.talk(ctx, "random_errors")
		return nil, nil, 0, nimbusErrors.ModelMissing("models are missing, please retrain")
	}

	if mergeErr := d.NER.MergeSpacyEntities(ctx, utterance); mergeErr != nil {
		slog.WarnContext(ctx, "NER spaCy merge degraded", "error", mergeErr)
	}

	if active := d.Store.ActiveContext(); active != nil {
		if active.IsInActionLoop {
			loopResult, redispatch, loopErr := d.ActionLoop.Handle(ctx, utterance)
			if redispatch != "" {
				return nil, &redispatchSignal{utterance: redispatch}, 0, nil
			}
			return loopResult, nil, execTimeOf(loopResult), loopErr
		}
		if len(active.SlotOrder) > 0 && !d.Store.AreSlotsAllFilled() {
			slotResult, handled, slotErr := d.SlotFiller.Handle(ctx, utterance)
			if handled {
				return slotResult, nil, execTimeOf(slotResult), slotErr
			}
		}
	}

	raw, classifyErr := d.Classifier.Process(ctx, utterance)
	if classifyErr != nil {
		return nil, nil, 0, nimbusErrors.Wrap(classifyErr, "classifier process failed")
	}

	intent, score, domain := raw.Intent, raw.Score, raw.Domain
	if active := d.Store.ActiveContext(); active != nil {
		for _, cand := range raw.Classifications {
			if cand.Score <= d.ContextBiasThreshold {
				continue
			}
			candDomain, derr := d.Classifier.GetIntentDomain(raw.Locale, cand.Intent)
			if derr != nil {
				continue
			}
			if candDomain+"."+intentSkill(cand.Intent) == active.Name() {
				intent, score, domain = cand.Intent, cand.Score, candDomain
			}
		}
	}

	if !d.localeSupported(raw.Locale) {
		slog.WarnContext(ctx, "Turn rejected", "error", nimbusErrors.UnsupportedLanguage(raw.Locale))
		d.talk(ctx, "random_language_not_supported")
		return nil, nil, 0, nil
	}

	currentLang := d.LangSwitch.CurrentLang()
	if raw.Locale != "" && raw.Locale != currentLang {
		if switchErr := d.LangSwitch.Switch(ctx, utterance, raw.Locale); switchErr != nil {
			return nil, nil, 0, switchErr
		}
		return nil, nil, 0, nil
	}

	var nluResult conversation.NLUResult
	if intent == "None" {
		fb, matched := fallback.Match(utterance, d.Fallbacks[currentLang])
		if !matched {
			slog.WarnContext(ctx, "Turn unresolved", "error", nimbusErrors.IntentNotFound())
			d.talk(ctx, "random_unknown_intents")
			return &conversation.NLUResult{Message: "Intent not found"}, nil, 0, nil
		}
		nluResult = fb
	} else {
		nluResult = conversation.NLUResult{
			Utterance: utterance,
			Answers:   raw.Answers,
			Classification: conversation.Classification{
				Domain:     domain,
				Skill:      intentSkill(intent),
				Action:     intentAction(intent),
				Confidence: score,
			},
		}
	}

	domain = nluResult.Classification.Domain
	skill := nluResult.Classification.Skill
	nluResult.ConfigDataFilePath = skillconfig.SkillConfigPath(d.SkillsRoot, domain, skill, currentLang)

	entities, nerErr := d.NER.ExtractEntities(ctx, nluResult.ConfigDataFilePath, utterance)
	if nerErr != nil {
		slog.WarnContext(ctx, "NER extraction degraded", "error", nerErr)
	}
	nluResult.CurrentEntities = entities

	if d.Telemetry != nil {
		d.Telemetry.Enqueue(telemetry.Event{Utterance: utterance, Lang: currentLang, Classification: nluResult.Classification})
	}

	if existing := d.Store.ActiveContext(); existing == nil || existing.Name() != domain+"."+skill {
		d.Store.CleanActiveContext()
	}
	fresh := conversation.NewActiveContext(currentLang, nluResult.Classification, utterance, nluResult.ConfigDataFilePath)
	fresh.CurrentEntities = entities
	fresh.Entities = entities
	d.Store.SetActiveContext(fresh)

	routed, routeErr := d.SlotFiller.RouteSlotFilling(ctx, nluResult.Classification.Intent())
	if routeErr == nil && routed {
		return nil, nil, 0, nil
	}

	// Preserved quirk (spec.md §9 Open Question (a)): RouteSlotFilling
	// above always asks its question even if this utterance already
	// carried the mandatory entity; we don't special-case it here.

	if active := d.Store.ActiveContext(); active != nil && len(active.SlotOrder) > 0 && d.Store.AreSlotsAllFilled() {
		slotResult, handled, slotErr := d.SlotFiller.Handle(ctx, utterance)
		if handled {
			return slotResult, nil, execTimeOf(slotResult), slotErr
		}
	}

	active := d.Store.ActiveContext()
	// Open Question (b): entities stays sourced from the active context
	// as the pseudocode literally states; currentEntities is exposed
	// separately for callers that want the union themselves.
	nluResult.Entities = active.Entities
	nluResult.CurrentEntities = active.CurrentEntities

	if d.Brain == nil {
		return &nluResult, nil, 0, nil
	}

	executed, execErr := d.Brain.Execute(ctx, nluResult)
	if execErr != nil {
		d.clearTyping()
		return nil, nil, 0, nimbusErrors.ExecutorError(execErr.Error())
	}

	if executed.NextAction != nil {
		active.ActionName = executed.NextAction.Name
		active.IsInActionLoop = executed.NextAction.Loop
		d.Store.SetActiveContext(active)
	}

	return &nluResult, nil, executed.ExecutionTime, nil
}

func (d *Dispatcher) talk(ctx context.Context, phrase string) {
	if d.Brain != nil {
		_ = d.Brain.Talk(ctx, phrase, false)
	}
	d.clearTyping()
}

func (d *Dispatcher) clearTyping() {
	if d.Socket != nil {
		d.Socket.IsTyping(false)
	}
}

func (d *Dispatcher) localeSupported(locale string) bool {
	if locale == "" {
		return true
	}
	for _, l := range d.SupportedLanguages {
		if l == locale {
			return true
		}
	}
	return false
}

func execTimeOf(result *conversation.NLUResult) float64 {
	if result == nil {
		return 0
	}
	return result.ProcessingTime
}

func intentSkill(intent string) string {
	if i := strings.IndexByte(intent, '.'); i >= 0 {
		return intent[:i]
	}
	return intent
}

func intentAction(intent string) string {
	if i := strings.LastIndexByte(intent, '.'); i >= 0 {
		return intent[i+1:]
	}
	return intent
}
