package inproc

import (
	"errors"
	"sync"

	"ndi_desktop/internal/domain"
)

var (
	ErrHandleNotRegistered = errors.New("handle is not registered in bus")
	ErrQueueFull           = errors.New("queue is full")
)

// Bus connects the host to its embedded child contexts. Children emit into a
// single inbox, which keeps arrival order; the host sends to one child handle
// at a time.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]chan domain.Envelope
	inbox  chan domain.Envelope
	buffer int
}

func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		subs:   make(map[string]chan domain.Envelope),
		inbox:  make(chan domain.Envelope, buffer),
		buffer: buffer,
	}
}

func (b *Bus) Register(handle string) <-chan domain.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[handle]; ok {
		return ch
	}
	ch := make(chan domain.Envelope, b.buffer)
	b.subs[handle] = ch
	return ch
}

func (b *Bus) Unregister(handle string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subs[handle]
	if !ok {
		return
	}
	delete(b.subs, handle)
	close(ch)
}

func (b *Bus) Registered(handle string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.subs[handle]
	return ok
}

// Send pushes a typed payload to one child. It never blocks.
func (b *Bus) Send(handle, eventType string, payload any) error {
	env, err := domain.NewEnvelope(handle, eventType, payload)
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	ch, ok := b.subs[handle]
	if !ok {
		return ErrHandleNotRegistered
	}

	select {
	case ch <- env:
		return nil
	default:
		return ErrQueueFull
	}
}

// Emit forwards a child frame to the host. Frames from other sources are
// dropped silently.
func (b *Bus) Emit(env domain.Envelope) error {
	if env.Source != domain.SourceID {
		return nil
	}
	select {
	case b.inbox <- env:
		return nil
	default:
		return ErrQueueFull
	}
}

func (b *Bus) Inbox() <-chan domain.Envelope {
	return b.inbox
}
