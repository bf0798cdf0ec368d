package agentmsg

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnverifiedEnvelope is returned when an inbound envelope is unsigned or
// fails signature verification, per spec.md §6's explicit requirement that
// the core refuse such input.
var ErrUnverifiedEnvelope = errors.New("agentmsg: envelope failed signature verification")

// Handler processes one verified inbound envelope.
type Handler func(e *Envelope) error

// InMemoryBus is a same-process test double for the abstract send/
// on_receive transport contract spec.md §6 names. It is not a concrete
// transport recommendation — spec.md explicitly places picking one (NATS,
// gRPC, HTTP, ...) out of scope — only a fixture for exercising the
// verify-then-dispatch path in tests.
type InMemoryBus struct {
	mu       sync.Mutex
	handlers map[string][]Handler
}

// NewInMemoryBus constructs an empty bus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{handlers: make(map[string][]Handler)}
}

// OnReceive registers handler to run for every envelope addressed to
// recipientID (or to every envelope, if recipientID is "").
func (b *InMemoryBus) OnReceive(recipientID string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[recipientID] = append(b.handlers[recipientID], handler)
}

// Send verifies e's signature and, only if valid, dispatches it to every
// handler registered for e.RecipientID plus every handler registered for
// "" (the broadcast registration). An unverified envelope is never
// dispatched.
func (b *InMemoryBus) Send(e *Envelope) error {
	ok, err := Verify(e)
	if err != nil {
		return fmt.Errorf("agentmsg: failed to verify envelope from %s: %w", e.SenderID, err)
	}
	if !ok {
		return fmt.Errorf("%w: sender %s", ErrUnverifiedEnvelope, e.SenderID)
	}

	b.mu.Lock()
	targets := append(append([]Handler{}, b.handlers[e.RecipientID]...), b.handlers[""]...)
	b.mu.Unlock()

	for _, h := range targets {
		if err := h(e); err != nil {
			return err
		}
	}
	return nil
}
