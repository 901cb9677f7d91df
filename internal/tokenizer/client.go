// Package tokenizer drives the external tokenization/builtin-entity child
// process: spawning it, talking to it over a line-based socket, and
// killing its process tree on language switch (spec.md §6, §9). The
// tokenization algorithm itself is an external collaborator and is never
// implemented here.
package tokenizer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// SpacyEntity is one auxiliary entity the tokenization service's spaCy
// pass recognized (spec.md §6).
type SpacyEntity struct {
	Entity     string         `json:"entity"`
	Resolution map[string]any `json:"resolution"`
}

// Client is the socket client contract the Language Switcher and NER
// Gateway depend on. Its sole observed lifecycle operation is Connect;
// GetSpacyEntities is the one real RPC the core makes of the service.
type Client interface {
	Connect(ctx context.Context, address string) error
	Close() error
	GetSpacyEntities(ctx context.Context, utterance string) ([]SpacyEntity, error)
	// OnConnected registers the handler invoked after each successful
	// Connect; it stays registered until replaced. Replacing the handler
	// discards any previous one (spec.md §4.7 step 5).
	OnConnected(handler func())
}

// SocketClient is a line-based JSON socket client: each request and
// response is one JSON object terminated by '\n'.
type SocketClient struct {
	mu      sync.Mutex
	conn    net.Conn
	onConn  func()
}

func NewSocketClient() *SocketClient {
	return &SocketClient{}
}

func (c *SocketClient) OnConnected(handler func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConn = handler
}

func (c *SocketClient) Connect(ctx context.Context, address string) error {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("connect tokenizer socket: %w", err)
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	handler := c.onConn
	c.mu.Unlock()

	slog.Info("Tokenizer socket connected", "address", address)

	if handler != nil {
		handler()
	}
	return nil
}

func (c *SocketClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

type spacyRequest struct {
	Utterance string `json:"utterance"`
}

type spacyResponse struct {
	Entities []SpacyEntity `json:"entities"`
}

func (c *SocketClient) GetSpacyEntities(ctx context.Context, utterance string) ([]SpacyEntity, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil, fmt.Errorf("tokenizer socket not connected")
	}

	payload, err := json.Marshal(spacyRequest{Utterance: utterance})
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("write to tokenizer socket: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read from tokenizer socket: %w", err)
	}

	var resp spacyResponse
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return nil, fmt.Errorf("decode tokenizer response: %w", err)
	}
	return resp.Entities, nil
}
