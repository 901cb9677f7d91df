package dispatcher

// redispatchSignal is the sentinel dispatchOnce builds from the Action
// Loop Handler's redispatch utterance instead of calling back into
// Process directly (the Language Switcher re-enters through its
// Redispatch callback instead, wired up in NewDispatcher). The
// single public Process entrypoint consumes it in a loop, so the
// session mutex is acquired exactly once per external call even though
// the turn logically re-enters dispatch (spec.md §9 "Reentrant
// dispatch").
type redispatchSignal struct {
	utterance string
}
