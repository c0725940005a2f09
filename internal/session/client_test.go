// internal/session/client_test.go
package session

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/scrolllab/api/schemas"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{APIBase: srv.URL + "/", RequestTimeout: 2 * time.Second}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.Error(t, err)

	_, err = NewClient(Config{APIBase: "not a url"}, nil)
	assert.Error(t, err)

	c, err := NewClient(Config{APIBase: "http://localhost:4500///"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4500", c.base)
}

func TestClient_StartAtomic(t *testing.T) {
	ctx := context.Background()

	t.Run("should decode a valid response", func(t *testing.T) {
		var path, method string
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			path, method = r.URL.Path, r.Method
			respond(http.StatusCreated, `{"id":"s1","code":"K7Q2","partIOrder":"BCA","partIIPattern":"xy"}`)(w, r)
		})

		got, err := c.StartAtomic(ctx)
		require.NoError(t, err)
		assert.Equal(t, "/sessions/start", path)
		assert.Equal(t, http.MethodPost, method)
		assert.Equal(t, &schemas.StartSessionResponse{ID: "s1", Code: "K7Q2", PartIOrder: "BCA", PartIIPattern: "xy"}, got)
	})

	t.Run("should reject a non-string code", func(t *testing.T) {
		c := newTestClient(t, respond(http.StatusOK, `{"code":42,"partIOrder":"ABC","partIIPattern":"p"}`))
		_, err := c.StartAtomic(ctx)
		assert.ErrorIs(t, err, ErrInvalidResponse)
		assert.Contains(t, err.Error(), "code")
	})

	t.Run("should reject a missing pattern", func(t *testing.T) {
		c := newTestClient(t, respond(http.StatusOK, `{"code":"K7Q2","partIOrder":"ABC"}`))
		_, err := c.StartAtomic(ctx)
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("should reject a non-object body", func(t *testing.T) {
		c := newTestClient(t, respond(http.StatusOK, `[1,2,3]`))
		_, err := c.StartAtomic(ctx)
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})
}

func TestClient_HTTPErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("should surface the body", func(t *testing.T) {
		c := newTestClient(t, respond(http.StatusConflict, `session already started`))
		_, err := c.Create(ctx)
		require.Error(t, err)
		assert.Equal(t, "HTTP 409: session already started", err.Error())

		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusConflict, httpErr.StatusCode)
	})

	t.Run("should fall back to the status text", func(t *testing.T) {
		c := newTestClient(t, respond(http.StatusServiceUnavailable, ""))
		err := c.Heartbeat(ctx, "K7Q2")
		require.Error(t, err)
		assert.Equal(t, "HTTP 503: Service Unavailable", err.Error())
	})
}

func TestClient_Create(t *testing.T) {
	c := newTestClient(t, respond(http.StatusCreated, `{"id":"s1","sessionCode":"K7Q2","status":"active","createdAt":"2025-10-26T10:00:00.000Z"}`))
	got, err := c.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "K7Q2", got.SessionCode)
	assert.Equal(t, schemas.SessionActive, got.Status)

	c = newTestClient(t, respond(http.StatusCreated, `{"id":"s1","sessionCode":"K7Q2"}`))
	_, err = c.Create(context.Background())
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestClient_AssignOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("should escape the code and accept a valid order", func(t *testing.T) {
		var rawPath string
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			rawPath = r.URL.EscapedPath()
			respond(http.StatusOK, `{"sessionCode":"a b","status":"active","partIOrder":"CAB","partIIPattern":null}`)(w, r)
		})
		got, err := c.AssignOrders(ctx, "a b")
		require.NoError(t, err)
		assert.Equal(t, "/sessions/a%20b/assign-orders", rawPath)
		require.NotNil(t, got.PartIOrder)
		assert.Equal(t, schemas.PartIOrder("CAB"), *got.PartIOrder)
		assert.Nil(t, got.PartIIPattern)
	})

	t.Run("should accept a null order", func(t *testing.T) {
		c := newTestClient(t, respond(http.StatusOK, `{"sessionCode":"K7Q2","partIOrder":null}`))
		got, err := c.AssignOrders(ctx, "K7Q2")
		require.NoError(t, err)
		assert.Nil(t, got.PartIOrder)
	})

	t.Run("should reject an unknown order", func(t *testing.T) {
		c := newTestClient(t, respond(http.StatusOK, `{"sessionCode":"K7Q2","partIOrder":"AAB"}`))
		_, err := c.AssignOrders(ctx, "K7Q2")
		assert.ErrorIs(t, err, ErrInvalidResponse)
		assert.Contains(t, err.Error(), "partIOrder")
	})
}

func TestClient_Heartbeat(t *testing.T) {
	var body, contentType string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body, contentType = string(b), r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, c.Heartbeat(context.Background(), "K7Q2"))
	assert.Equal(t, "{}", body)
	assert.Equal(t, "application/json", contentType)
}

func TestClient_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIBase: srv.URL, RateLimit: 0.001, RateBurst: 1}, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, c.Heartbeat(context.Background(), "K7Q2"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = c.Heartbeat(ctx, "K7Q2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
	assert.EqualValues(t, 1, calls.Load())
}
