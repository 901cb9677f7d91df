// Package langswitch implements the Language Switcher (C7): it recycles
// the tokenization child process for a new locale, reconnects the
// socket client, and re-enters dispatch once the connection succeeds
// (spec.md §4.7).
package langswitch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/nimbus/internal/brain"
	"github.com/harunnryd/nimbus/internal/concurrency"
	"github.com/harunnryd/nimbus/internal/conversation"
	"github.com/harunnryd/nimbus/internal/socket"
	"github.com/harunnryd/nimbus/internal/tokenizer"
)

const defaultKillTimeout = 5 * time.Second

// Switcher owns the tokenization child process lifecycle across a
// language change.
type Switcher struct {
	Process         *tokenizer.ProcessManager
	Client          tokenizer.Client
	Brain           brain.Executor
	Socket          socket.Server
	Store           *conversation.Store
	CommandTemplate string
	SocketAddress   func(locale string) string
	KillTimeout     time.Duration

	// Redispatch is invoked exactly once, the next time the socket
	// client reports a successful connection, with the original
	// utterance (spec.md §4.7 step 5).
	Redispatch func(utterance string)

	mu          sync.Mutex
	currentLang string
}

func NewSwitcher(process *tokenizer.ProcessManager, client tokenizer.Client, exec brain.Executor, sock socket.Server, store *conversation.Store, commandTemplate string, socketAddress func(string) string, redispatch func(string)) *Switcher {
	return &Switcher{
		Process:         process,
		Client:          client,
		Brain:           exec,
		Socket:          sock,
		Store:           store,
		CommandTemplate: commandTemplate,
		SocketAddress:   socketAddress,
		Redispatch:      redispatch,
	}
}

// CurrentLang reports the locale the Switcher believes is active.
func (s *Switcher) CurrentLang() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLang
}

// SetCurrentLang seeds the initial locale at startup, before any switch
// has happened.
func (s *Switcher) SetCurrentLang(lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentLang = lang
}

// Switch implements spec.md §4.7. It returns as soon as the new process
// is spawned and the reconnect has been kicked off; the actual
// classification of utterance happens asynchronously in the "connected"
// handler. If the child never comes up, the core does not retry
// (spec.md §4.7, final paragraph).
func (s *Switcher) Switch(ctx context.Context, utterance, newLocale string) error {
	if s.Brain != nil {
		_ = s.Brain.Talk(ctx, "random_language_switch", false)
	}
	if s.Socket != nil {
		s.Socket.IsTyping(false)
	}

	s.mu.Lock()
	s.currentLang = newLocale
	s.mu.Unlock()

	oldPID := s.Process.PID()
	timeout := s.KillTimeout
	if timeout == 0 {
		timeout = defaultKillTimeout
	}
	if err := s.Process.Kill(oldPID, timeout); err != nil {
		slog.Error("Tokenizer process kill failed", "pid", oldPID, "error", err)
	}

	if _, err := s.Process.Spawn(s.CommandTemplate, newLocale); err != nil {
		slog.Error("Tokenizer process spawn failed", "locale", newLocale, "error", err)
		return err
	}

	// Invariant 5: changing language clears the active context.
	s.Store.CleanActiveContext()

	var once sync.Once
	s.Client.OnConnected(func() {
		once.Do(func() {
			if s.Redispatch != nil {
				s.Redispatch(utterance)
			}
		})
	})

	address := ""
	if s.SocketAddress != nil {
		address = s.SocketAddress(newLocale)
	}
	concurrency.SafeGo(func() {
		if err := s.Client.Connect(context.Background(), address); err != nil {
			slog.Error("Tokenizer socket reconnect failed", "address", address, "error", err)
		}
	}, func(r any) {
		slog.Error("Tokenizer reconnect goroutine panicked", "panic", r)
	})

	return nil
}
