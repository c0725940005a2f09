// internal/telemetry/recorder_test.go
package telemetry_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/scrolllab/internal/scroll"
	"github.com/xkilldash9x/scrolllab/internal/telemetry"
)

func TestRecorder_WritesJSONLines(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Unbuffered so each Post returns only once the recorder holds the message.
	b := newTestBus(t, 0)
	var out bytes.Buffer
	rec := telemetry.NewRecorder(b, &out, zaptest.NewLogger(t))
	wait := rec.Start(context.Background())

	events := []scroll.Event{
		{Kind: scroll.EventPress, Technique: scroll.TechniqueIV, TimeMs: 0},
		{Kind: scroll.EventFlick, Technique: scroll.TechniqueIV, TimeMs: 120, Velocity: -1.5,
			BreakContact: &scroll.BreakContact{WindowY: 300, DocumentY: 1300}},
		{Kind: scroll.EventInertiaStop, Technique: scroll.TechniqueIV, TimeMs: 600, Reason: scroll.StopEdgeCrossing},
	}
	for _, ev := range events {
		require.NoError(t, b.Post(context.Background(), telemetry.Kind(ev.Kind), ev))
	}
	b.Shutdown()
	require.NoError(t, wait())

	assert.Equal(t, 3, rec.Count())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)

	var decoded struct {
		Kind    string       `json:"kind"`
		Payload scroll.Event `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &decoded))
	assert.Equal(t, "flick", decoded.Kind)
	assert.Equal(t, events[1].Velocity, decoded.Payload.Velocity)
	require.NotNil(t, decoded.Payload.BreakContact)
	assert.Equal(t, 1300.0, decoded.Payload.BreakContact.DocumentY)

	require.NoError(t, json.Unmarshal([]byte(lines[2]), &decoded))
	assert.Equal(t, scroll.StopEdgeCrossing, decoded.Payload.Reason)
}

func TestRecorder_StopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := newTestBus(t, 1)
	defer b.Shutdown()
	ctx, cancel := context.WithCancel(context.Background())
	rec := telemetry.NewRecorder(b, &bytes.Buffer{}, zaptest.NewLogger(t))
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}
