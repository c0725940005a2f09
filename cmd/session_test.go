// cmd/session_test.go
package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scrolllab/internal/scroll"
	"github.com/xkilldash9x/scrolllab/internal/session"
)

// fakeSessionAPI serves the session endpoints for one generated code.
type fakeSessionAPI struct {
	code       string
	order      string
	heartbeats atomic.Int32
	server     *httptest.Server
}

func newFakeSessionAPI(t *testing.T, order string) *fakeSessionAPI {
	t.Helper()
	api := &fakeSessionAPI{code: strings.ToUpper(uuid.NewString()[:8]), order: order}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions/start", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"id": "s-1", "code": api.code, "partIOrder": api.order, "partIIPattern": "ABAB",
		})
	})
	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"id": "s-1", "sessionCode": api.code, "status": "active", "createdAt": "2025-01-01T00:00:00.000Z",
		})
	})
	mux.HandleFunc("POST /sessions/{code}/assign-orders", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("code") != api.code {
			http.Error(w, "no such session", http.StatusNotFound)
			return
		}
		var order interface{}
		if api.order != "" {
			order = api.order
		}
		writeJSON(w, map[string]interface{}{
			"id": "s-1", "sessionCode": api.code, "status": "active", "partIOrder": order, "partIIPattern": nil,
		})
	})
	mux.HandleFunc("POST /sessions/{code}/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		api.heartbeats.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	api.server = httptest.NewServer(mux)
	t.Cleanup(api.server.Close)
	return api
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func decodeSessionView(t *testing.T, out string) sessionView {
	t.Helper()
	var v sessionView
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestSessionStart_BuildsPlanAndSavesProgress(t *testing.T) {
	api := newFakeSessionAPI(t, "BCA")
	stores := newMemStoreProvider(t)

	res := executeCommand(t, stores, "", "session", "--api-base", api.server.URL, "start")
	require.NoError(t, res.err)

	v := decodeSessionView(t, res.out)
	assert.Equal(t, api.code, v.Code)
	assert.Equal(t, "BCA", v.PartIOrder)
	require.Len(t, v.Steps, 3)
	assert.Equal(t, stepView{Index: 1, Doc: "B", Technique: scroll.TechniqueI, Content: "T2", Unlocked: true, Active: true}, v.Steps[0])
	assert.Equal(t, scroll.TechniqueIII, v.Steps[1].Technique)
	assert.False(t, v.Steps[1].Unlocked)
	assert.Equal(t, "T1", v.Steps[2].Content)
	assert.Equal(t, "Next", v.Action)

	_, found, err := stores.prefs().LoadProgress(context.Background(), api.code)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSessionStart_TwoStep(t *testing.T) {
	api := newFakeSessionAPI(t, "CAB")
	res := executeCommand(t, newMemStoreProvider(t), "", "session", "start", "--two-step", "--api-base", api.server.URL)
	require.NoError(t, res.err)

	v := decodeSessionView(t, res.out)
	assert.Equal(t, api.code, v.Code)
	assert.Equal(t, "CAB", v.PartIOrder)
	require.Len(t, v.Steps, 3)
	assert.Equal(t, "T3", v.Steps[0].Content)
}

func TestSessionStart_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	res := executeCommand(t, newMemStoreProvider(t), "", "session", "start", "--api-base", srv.URL)
	require.Error(t, res.err)
	var httpErr *session.HTTPError
	require.ErrorAs(t, res.err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
}

func TestSessionHeartbeat(t *testing.T) {
	api := newFakeSessionAPI(t, "ABC")
	res := executeCommand(t, newMemStoreProvider(t), "", "session", "heartbeat", api.code, "--api-base", api.server.URL)
	require.NoError(t, res.err)
	assert.Equal(t, int32(1), api.heartbeats.Load())
	assert.Contains(t, res.out+res.errOut, "Heartbeat sent")
}

func TestSessionCompleteAndPick(t *testing.T) {
	stores := newMemStoreProvider(t)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	res := executeCommand(t, stores, "", "session", "pick", "XYZ", "2")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "step 2 is locked")

	res = executeCommand(t, stores, "", "session", "complete", "XYZ", "--order", "ABC")
	require.NoError(t, res.err)
	v := decodeSessionView(t, res.out)
	assert.True(t, v.Steps[0].Done)
	assert.Equal(t, "2025-03-01T12:00:00.000Z", v.Steps[0].TS)
	assert.True(t, v.Steps[1].Active)
	assert.True(t, v.Steps[1].Unlocked)

	res = executeCommand(t, stores, "", "session", "pick", "XYZ", "1")
	require.NoError(t, res.err)
	v = decodeSessionView(t, res.out)
	assert.Equal(t, "Done", v.Action)

	res = executeCommand(t, stores, "", "session", "complete", "XYZ")
	require.NoError(t, res.err)
	assert.Contains(t, res.errOut, "Step 1 is already done.")
}

func TestSessionPlan_InvalidOrder(t *testing.T) {
	res := executeCommand(t, newMemStoreProvider(t), "", "session", "plan", "XYZ", "--order", "AAB")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "invalid Part I order")
}

func TestSessionRun_WalksAllSteps(t *testing.T) {
	api := newFakeSessionAPI(t, "ACB")
	stores := newMemStoreProvider(t)

	res := executeCommand(t, stores, "\n2\n\n\n", "session", "run", api.code, "--api-base", api.server.URL)
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "Step 1: document A (T1) with technique I [Next]> ")
	assert.Contains(t, res.out, "Step 3: document B (T2) with technique IV [Complete]> ")
	assert.Contains(t, res.out, "All steps complete.")

	saved, found, err := stores.prefs().LoadProgress(context.Background(), api.code)
	require.NoError(t, err)
	require.True(t, found)
	for idx := 1; idx <= 3; idx++ {
		assert.True(t, saved.Steps[idx].Done, "step %d", idx)
	}
}

func TestSessionRun_NoOrderYet(t *testing.T) {
	api := newFakeSessionAPI(t, "")
	res := executeCommand(t, newMemStoreProvider(t), "", "session", "run", api.code, "--api-base", api.server.URL)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "has no Part I order yet")
}

func TestStepLoop_StopsOnQuitAndRejectsLockedSteps(t *testing.T) {
	plan, err := session.BuildPlan("ABC")
	require.NoError(t, err)
	progress := session.NewProgress()
	saves := 0

	cmd := &cobra.Command{}
	var out strings.Builder
	cmd.SetOut(&out)

	lines := make(chan string, 3)
	lines <- "3"
	lines <- "q"
	lines <- ""
	err = stepLoop(context.Background(), cmd, lines, plan, progress, func() error { saves++; return nil })
	require.NoError(t, err)
	assert.Contains(t, out.String(), `Cannot select "3".`)
	assert.Zero(t, saves)
	assert.Equal(t, 1, progress.Active())
}
