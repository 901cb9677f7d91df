package tokenizer

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/shlex"
)

// ProcessManager owns the tokenization child process, a process-wide
// singleton keyed by PID, created and destroyed only by the Language
// Switcher (spec.md §5, §9 "PID-tree process kill").
type ProcessManager struct {
	mu  sync.Mutex
	cmd *exec.Cmd
}

func NewProcessManager() *ProcessManager {
	return &ProcessManager{}
}

// Spawn parses commandTemplate (with "{locale}" substituted) via shlex and
// launches it in its own process group, so Kill can terminate the whole
// tree including any tokenizer workers it forks (spec.md §4.7 step 4, §9).
func (p *ProcessManager) Spawn(commandTemplate, locale string) (int, error) {
	rendered := strings.ReplaceAll(commandTemplate, "{locale}", locale)
	argv, err := shlex.Split(rendered)
	if err != nil {
		return 0, fmt.Errorf("parse tokenizer command template %q: %w", commandTemplate, err)
	}
	if len(argv) == 0 {
		return 0, fmt.Errorf("empty tokenizer command template")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("spawn tokenizer process: %w", err)
	}

	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()

	slog.Info("Tokenizer process spawned", "locale", locale, "pid", cmd.Process.Pid)
	return cmd.Process.Pid, nil
}

// Kill terminates pid's entire process group and waits for it to exit,
// so stranded tokenizer workers are never leaked (spec.md §4.7 step 3,
// §5, §9). A pid of 0 is a no-op.
func (p *ProcessManager) Kill(pid int, timeout time.Duration) error {
	if pid == 0 {
		return nil
	}

	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && err != syscall.ESRCH {
		return fmt.Errorf("terminate tokenizer process group %d: %w", pid, err)
	}

	done := make(chan struct{})
	go func() {
		p.mu.Lock()
		cmd := p.cmd
		p.mu.Unlock()
		if cmd != nil {
			cmd.Wait()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		syscall.Kill(-pid, syscall.SIGKILL)
		<-done
	}

	p.mu.Lock()
	p.cmd = nil
	p.mu.Unlock()

	slog.Info("Tokenizer process group killed", "pid", pid)
	return nil
}

// PID returns the currently tracked child's PID, or 0 if none is running.
func (p *ProcessManager) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Alive reports whether pid still exists in the process table (P6: used
// to assert the previous tokenizer PID is gone after a switch).
func Alive(pid int) bool {
	if pid == 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}
