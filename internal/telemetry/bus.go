// internal/telemetry/bus.go
package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scrolllab/internal/scroll"
)

// ErrBusClosed is returned by Post once Shutdown has started.
var ErrBusClosed = errors.New("telemetry bus is shut down")

// Kind categorizes messages on the bus.
type Kind string

// ScrollKinds returns the kinds posted for scroll controller events.
func ScrollKinds() []Kind {
	return []Kind{
		Kind(scroll.EventPress),
		Kind(scroll.EventRelease),
		Kind(scroll.EventFlick),
		Kind(scroll.EventInertiaStop),
		Kind(scroll.EventReset),
		Kind(scroll.EventTeardown),
		Kind(scroll.EventTechnique),
	}
}

// Message is the envelope for data transmitted over the Bus.
type Message struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"ts"`
	Kind      Kind        `json:"kind"`
	Payload   interface{} `json:"payload"`
}

// Publisher is the write side of the bus.
type Publisher interface {
	Post(ctx context.Context, kind Kind, payload interface{}) error
}

// Bus is an in-process pub/sub for interaction telemetry.
type Bus struct {
	logger *zap.Logger

	subscribers map[Kind][]chan Message
	// retired holds unsubscribed channels a Post may still be sending to.
	retired    map[chan Message]struct{}
	mu         sync.RWMutex
	bufferSize int

	// processingWg counts delivered messages that have not been acknowledged.
	processingWg sync.WaitGroup
	// activePostsWg counts Post calls in flight.
	activePostsWg sync.WaitGroup

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	isShutdown   bool
	shutdownMu   sync.Mutex
}

var _ Publisher = (*Bus)(nil)

// NewBus initializes the Bus. Each subscriber channel gets bufferSize slots.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &Bus{
		logger:       logger.Named("telemetry"),
		subscribers:  make(map[Kind][]chan Message),
		retired:      make(map[chan Message]struct{}),
		bufferSize:   bufferSize,
		shutdownChan: make(chan struct{}),
	}
}

// Post sends a message to every subscriber of kind. Blocks while subscriber
// buffers are full, until ctx is done or the bus shuts down.
func (b *Bus) Post(ctx context.Context, kind Kind, payload interface{}) error {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return ErrBusClosed
	}
	b.activePostsWg.Add(1)
	b.shutdownMu.Unlock()
	defer b.activePostsWg.Done()

	msg := Message{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Payload:   payload,
	}

	b.mu.RLock()
	subs := b.subscribers[kind]
	if len(subs) == 0 {
		b.mu.RUnlock()
		return nil
	}
	targets := make([]chan Message, len(subs))
	copy(targets, subs)
	b.mu.RUnlock()

	for _, ch := range targets {
		b.processingWg.Add(1)
		select {
		case ch <- msg:
		case <-ctx.Done():
			b.processingWg.Done()
			return ctx.Err()
		case <-b.shutdownChan:
			b.processingWg.Done()
			return ErrBusClosed
		}
	}
	return nil
}

// shuttingDown reads the flag Shutdown sets under shutdownMu. Safe with mu
// held since Shutdown never holds both locks at once.
func (b *Bus) shuttingDown() bool {
	b.shutdownMu.Lock()
	defer b.shutdownMu.Unlock()
	return b.isShutdown
}

// Subscribe returns a channel receiving the given kinds and a function that
// removes the subscription. Consumers must Acknowledge every message.
func (b *Bus) Subscribe(kinds ...Kind) (<-chan Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.shuttingDown() {
		closed := make(chan Message)
		close(closed)
		return closed, func() {}
	}
	if len(kinds) == 0 {
		panic("must subscribe to at least one message kind")
	}

	ch := make(chan Message, b.bufferSize)
	subscribed := make([]Kind, len(kinds))
	copy(subscribed, kinds)
	for _, k := range subscribed {
		b.subscribers[k] = append(b.subscribers[k], ch)
	}

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, k := range subscribed {
			subs := b.subscribers[k]
			for i, c := range subs {
				if c == ch {
					copy(subs[i:], subs[i+1:])
					b.subscribers[k] = subs[:len(subs)-1]
					if len(b.subscribers[k]) == 0 {
						delete(b.subscribers, k)
					}
					break
				}
			}
		}
		// Unread messages are released here; the channel is closed by Shutdown.
		b.retired[ch] = struct{}{}
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return
				}
				b.processingWg.Done()
			default:
				return
			}
		}
	}
	return ch, unsubscribe
}

// Acknowledge marks a received message as processed.
func (b *Bus) Acknowledge(Message) {
	b.processingWg.Done()
}

// Drain waits until every delivered message has been acknowledged or ctx is
// done. It must not run concurrently with Post. Follow it with Shutdown, which
// releases the waiter if a consumer stopped early.
func (b *Bus) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.processingWg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting posts, closes every subscriber channel, drains
// unread messages and waits for in-flight processing.
func (b *Bus) Shutdown() {
	b.shutdownOnce.Do(func() {
		b.shutdownMu.Lock()
		b.isShutdown = true
		b.shutdownMu.Unlock()

		close(b.shutdownChan)
		b.activePostsWg.Wait()

		b.mu.Lock()
		unique := make(map[chan Message]struct{})
		for _, subs := range b.subscribers {
			for _, ch := range subs {
				unique[ch] = struct{}{}
			}
		}
		for ch := range b.retired {
			unique[ch] = struct{}{}
		}
		for ch := range unique {
			close(ch)
		}
		drained := 0
		for ch := range unique {
			for range ch {
				drained++
				b.processingWg.Done()
			}
		}
		b.subscribers = make(map[Kind][]chan Message)
		b.retired = make(map[chan Message]struct{})
		b.mu.Unlock()

		if drained > 0 {
			b.logger.Debug("Drained buffered telemetry during shutdown.", zap.Int("count", drained))
		}
		b.processingWg.Wait()
		b.logger.Debug("Telemetry bus shut down.")
	})
}
