// Package memory is an in-process realtime backend. Clients attached to
// the same Hub see each other's pushes, which makes it a stand-in for a
// cloud document store in tests and local development.
package memory

import (
	"context"
	"sync"

	"hhsfinance/internal/backup"
	"hhsfinance/internal/core"
	"hhsfinance/internal/gateway"
)

type entry struct {
	payload []byte
	origin  string
}

// Hub holds the shared remote document.
type Hub struct {
	mu        sync.Mutex
	current   *entry
	listeners map[int]chan entry
	nextID    int
}

func NewHub() *Hub {
	return &Hub{listeners: map[int]chan entry{}}
}

// Put stores a document as if it had been pushed by origin.
func (h *Hub) Put(doc core.BackupData, origin string) error {
	b, err := gateway.EncodePayload(doc)
	if err != nil {
		return err
	}
	h.PutRaw(b, origin)
	return nil
}

// PutRaw stores an already encoded document.
func (h *Hub) PutRaw(payload []byte, origin string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e := entry{payload: append([]byte(nil), payload...), origin: origin}
	h.current = &e
	for _, ch := range h.listeners {
		// keep only the newest pending document per listener
		select {
		case ch <- e:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- e
		}
	}
}

func (h *Hub) get() (entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return entry{}, false
	}
	return *h.current, true
}

func (h *Hub) listen() (<-chan entry, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan entry, 1)
	if h.current != nil {
		ch <- *h.current
	}
	h.listeners[id] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
	}
}

// Listeners is the number of live subscriptions.
func (h *Hub) Listeners() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// Client is one device's view of the hub.
type Client struct {
	hub    *Hub
	origin string

	mu    sync.Mutex
	ready bool
}

var (
	_ gateway.Gateway    = (*Client)(nil)
	_ gateway.Subscriber = (*Client)(nil)
)

func NewClient(hub *Hub) *Client {
	return &Client{hub: hub, origin: gateway.NewOrigin(), ready: true}
}

func (c *Client) Name() string { return "memory" }

// Origin is the id attached to this client's pushes.
func (c *Client) Origin() string { return c.origin }

func (c *Client) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// SetReady simulates authorization being granted or revoked.
func (c *Client) SetReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

func (c *Client) Push(ctx context.Context, doc core.BackupData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.Ready() {
		return gateway.ErrNotAuthorized
	}
	return c.hub.Put(doc, c.origin)
}

func (c *Client) Pull(ctx context.Context) (backup.Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return backup.Snapshot{}, false, err
	}
	if !c.Ready() {
		return backup.Snapshot{}, false, gateway.ErrNotAuthorized
	}
	e, ok := c.hub.get()
	if !ok {
		return backup.Snapshot{}, false, nil
	}
	snap, err := gateway.DecodePayload(e.payload)
	if err != nil {
		return backup.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (c *Client) Subscribe(ctx context.Context) (*gateway.Subscription, error) {
	if !c.Ready() {
		return nil, gateway.ErrNotAuthorized
	}
	ch, stop := c.hub.listen()
	return gateway.NewSubscription(ctx, func(ctx context.Context, deliver gateway.DeliverFunc) error {
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case e := <-ch:
				if e.origin == c.origin {
					continue
				}
				snap, err := gateway.DecodePayload(e.payload)
				if err != nil {
					continue
				}
				if !deliver(snap) {
					return nil
				}
			}
		}
	}), nil
}
