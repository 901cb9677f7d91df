// Package telemetry implements the optional anonymous-telemetry HTTP
// client (spec.md §6: "Outbound HTTP (optional, off by default)"). It
// is off unless explicitly enabled in configuration, and queues
// payloads instead of posting synchronously inside a turn, so a slow or
// unreachable endpoint never adds latency to dispatch.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/harunnryd/nimbus/internal/conversation"

	"github.com/robfig/cron/v3"
)

// Event is one queued anonymous usage record (spec.md §6).
type Event struct {
	Utterance      string                      `json:"utterance"`
	Lang           string                      `json:"lang"`
	Classification conversation.Classification `json:"classification"`
}

type payload struct {
	Version        string                      `json:"version"`
	Utterance      string                      `json:"utterance"`
	Lang           string                      `json:"lang"`
	Classification conversation.Classification `json:"classification"`
}

// Client batches Events and flushes them to Endpoint on a cron
// schedule. A disabled Client silently drops every Enqueue call.
type Client struct {
	Enabled      bool
	Endpoint     string
	Version      string
	FlushCron    string
	QueueMaxSize int
	HTTPClient   *http.Client

	mu    sync.Mutex
	queue []Event
	cron  *cron.Cron
}

func NewClient(enabled bool, endpoint, version, flushCron string, queueMaxSize int) *Client {
	return &Client{
		Enabled:      enabled,
		Endpoint:     endpoint,
		Version:      version,
		FlushCron:    flushCron,
		QueueMaxSize: queueMaxSize,
		HTTPClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Enqueue queues one event for the next flush. No-op when disabled.
func (c *Client) Enqueue(e Event) {
	if !c.Enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.QueueMaxSize > 0 && len(c.queue) >= c.QueueMaxSize {
		c.queue = c.queue[1:]
	}
	c.queue = append(c.queue, e)
}

// Start begins the batched flush schedule. No-op when disabled.
func (c *Client) Start() error {
	if !c.Enabled {
		return nil
	}

	c.cron = cron.New()
	if _, err := c.cron.AddFunc(c.FlushCron, c.flush); err != nil {
		return err
	}
	c.cron.Start()
	return nil
}

// Stop halts the flush schedule.
func (c *Client) Stop() {
	if c.cron != nil {
		c.cron.Stop()
	}
}

func (c *Client) flush() {
	c.mu.Lock()
	batch := c.queue
	c.queue = nil
	c.mu.Unlock()

	for _, e := range batch {
		if err := c.post(context.Background(), e); err != nil {
			slog.Warn("Telemetry flush failed", "error", err)
		}
	}
}

func (c *Client) post(ctx context.Context, e Event) error {
	body, err := json.Marshal(payload{
		Version:        c.Version,
		Utterance:      e.Utterance,
		Lang:           e.Lang,
		Classification: e.Classification,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Origin", "leon-core")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}
