// internal/engine/frames.go
package engine

import (
	"sync"
	"time"
)

// FrameSource delivers frame timestamps while started. The loop only keeps a
// source running while a kinetic phase is active.
type FrameSource interface {
	Start(interval time.Duration) <-chan float64
	Stop()
}

// TickerFrames emits clock readings on a time.Ticker.
type TickerFrames struct {
	clock Clock

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

var _ FrameSource = (*TickerFrames)(nil)

// NewTickerFrames creates a ticker-driven source stamped by clock.
func NewTickerFrames(clock Clock) *TickerFrames {
	return &TickerFrames{clock: clock}
}

// Start launches the ticker. Starting a running source restarts it.
func (f *TickerFrames) Start(interval time.Duration) <-chan float64 {
	f.Stop()

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(chan float64)
	stop := make(chan struct{})
	f.stop = stop
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				select {
				case out <- f.clock.Now():
				case <-stop:
					return
				}
			}
		}
	}()
	return out
}

// Stop halts the ticker and waits for its goroutine.
func (f *TickerFrames) Stop() {
	f.mu.Lock()
	stop := f.stop
	f.stop = nil
	f.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	f.wg.Wait()
}

// ManualFrames is a FrameSource driven by explicit Tick calls.
type ManualFrames struct {
	mu     sync.Mutex
	out    chan float64
	stop   chan struct{}
	starts int
}

var _ FrameSource = (*ManualFrames)(nil)

// Start implements FrameSource.
func (f *ManualFrames) Start(time.Duration) <-chan float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stop != nil {
		close(f.stop)
	}
	f.out = make(chan float64)
	f.stop = make(chan struct{})
	f.starts++
	return f.out
}

// Stop implements FrameSource.
func (f *ManualFrames) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stop != nil {
		close(f.stop)
	}
	f.out, f.stop = nil, nil
}

// Tick delivers a frame at now. It returns false if the source is stopped
// or gets stopped before the frame is taken.
func (f *ManualFrames) Tick(now float64) bool {
	f.mu.Lock()
	out, stop := f.out, f.stop
	f.mu.Unlock()
	if out == nil {
		return false
	}
	select {
	case out <- now:
		return true
	case <-stop:
		return false
	}
}

// Running reports whether the source is currently started.
func (f *ManualFrames) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out != nil
}

// Starts returns how many times the source was started.
func (f *ManualFrames) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}
