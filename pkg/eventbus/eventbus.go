package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultListenerTimeout = 5 * time.Second

type Event interface {
	Name() string
}

type Listener func(ctx context.Context, event Event) error

// Publisher is what producers depend on.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Bus delivers each event to its listeners synchronously, in subscription
// order, so events published one after another reach a listener in the
// same order. Listener errors and panics are logged and never reach the
// publisher.
type Bus struct {
	listeners map[string][]Listener
	mu        sync.RWMutex
	logger    *zap.Logger
	timeout   time.Duration
}

func New(logger *zap.Logger) *Bus {
	return &Bus{
		listeners: make(map[string][]Listener),
		logger:    logger,
		timeout:   defaultListenerTimeout,
	}
}

func (b *Bus) Subscribe(eventName string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventName] = append(b.listeners[eventName], listener)
}

// Publish runs on a context detached from the caller's cancellation: the
// request that produced the event may already be finishing.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	listeners := append([]Listener(nil), b.listeners[event.Name()]...)
	b.mu.RUnlock()

	for _, l := range listeners {
		b.dispatch(ctx, l, event)
	}
}

func (b *Bus) dispatch(ctx context.Context, l Listener, event Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("event listener panicked",
				zap.String("event", event.Name()),
				zap.String("panic", fmt.Sprint(p)),
			)
		}
	}()

	if err := l(ctx, event); err != nil {
		b.logger.Error("event listener failed",
			zap.String("event", event.Name()),
			zap.Error(err),
		)
	}
}
