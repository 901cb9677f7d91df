package dispatcher

import (
	"context"
	"fmt"

	"github.com/harunnryd/nimbus/internal/tokenizer"
)

// ComponentHealth reports one subsystem's readiness, following the
// orchestrator health-check shape used elsewhere in this codebase.
type ComponentHealth struct {
	Name    string
	Healthy bool
	Error   error
}

// Health reports whether the classifier models are loaded and the
// tokenization child process is alive. It does not take the session
// lock: health checks must never block behind an in-flight Process call.
func (d *Dispatcher) Health(ctx context.Context) []ComponentHealth {
	statuses := []ComponentHealth{d.modelHealth()}
	if d.LangSwitch != nil && d.LangSwitch.Process != nil {
		statuses = append(statuses, d.tokenizerHealth())
	}
	return statuses
}

func (d *Dispatcher) modelHealth() ComponentHealth {
	status := ComponentHealth{Name: "classifier_models", Healthy: d.ModelLoader.IsReady()}
	if !status.Healthy {
		status.Error = fmt.Errorf("models not loaded")
	}
	return status
}

func (d *Dispatcher) tokenizerHealth() ComponentHealth {
	pid := d.LangSwitch.Process.PID()
	status := ComponentHealth{Name: "tokenizer_process", Healthy: pid > 0 && tokenizer.Alive(pid)}
	if !status.Healthy {
		status.Error = fmt.Errorf("tokenizer process (pid %d) not running", pid)
	}
	return status
}
