// internal/telemetry/recorder.go
package telemetry

import (
	"bufio"
	"context"
	"fmt"
	"io"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// Recorder writes every message it receives as one JSON line.
type Recorder struct {
	bus    *Bus
	w      *bufio.Writer
	logger *zap.Logger
	count  int
}

// NewRecorder creates a recorder writing to w.
func NewRecorder(bus *Bus, w io.Writer, logger *zap.Logger) *Recorder {
	return &Recorder{
		bus:    bus,
		w:      bufio.NewWriter(w),
		logger: logger.Named("recorder"),
	}
}

// Run consumes kinds (all scroll kinds when none are given) until ctx is done
// or the bus shuts down. Output is flushed before returning.
func (r *Recorder) Run(ctx context.Context, kinds ...Kind) error {
	if len(kinds) == 0 {
		kinds = ScrollKinds()
	}
	msgs, unsubscribe := r.bus.Subscribe(kinds...)
	defer unsubscribe()
	return r.consume(ctx, msgs)
}

// Start subscribes synchronously and consumes in the background. The returned
// function waits for the consumer to finish and reports its error.
func (r *Recorder) Start(ctx context.Context, kinds ...Kind) func() error {
	if len(kinds) == 0 {
		kinds = ScrollKinds()
	}
	msgs, unsubscribe := r.bus.Subscribe(kinds...)
	done := make(chan error, 1)
	go func() {
		defer unsubscribe()
		done <- r.consume(ctx, msgs)
	}()
	return func() error { return <-done }
}

func (r *Recorder) consume(ctx context.Context, msgs <-chan Message) error {
	defer r.flush()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			err := r.write(msg)
			r.bus.Acknowledge(msg)
			if err != nil {
				return err
			}
		}
	}
}

// Count returns the number of messages written.
func (r *Recorder) Count() int { return r.count }

func (r *Recorder) write(msg Message) error {
	line, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode telemetry message %s: %w", msg.ID, err)
	}
	if _, err := r.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write telemetry message: %w", err)
	}
	r.count++
	return nil
}

func (r *Recorder) flush() {
	if err := r.w.Flush(); err != nil {
		r.logger.Warn("Failed to flush telemetry output.", zap.Error(err))
	}
}
