// cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scrolllab/api/schemas"
	"github.com/xkilldash9x/scrolllab/internal/config"
	"github.com/xkilldash9x/scrolllab/internal/store"
	"github.com/xkilldash9x/scrolllab/internal/trace"
)

const testConfigYAML = `
logger:
  level: error
scroll:
  technique: I
`

// memStoreProvider serves preferences from an in-memory file store that
// survives across command invocations of one test.
type memStoreProvider struct {
	kv     store.KV
	err    error
	opened int
}

func newMemStoreProvider(t *testing.T) *memStoreProvider {
	t.Helper()
	kv, err := store.NewFileStore(afero.NewMemMapFs(), "/store", zap.NewNop())
	require.NoError(t, err)
	return &memStoreProvider{kv: kv}
}

func (p *memStoreProvider) Create(context.Context, config.Interface) (*store.Preferences, func(), error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	p.opened++
	return store.NewPreferences(p.kv, zap.NewNop()), func() {}, nil
}

func (p *memStoreProvider) prefs() *store.Preferences {
	return store.NewPreferences(p.kv, zap.NewNop())
}

var errStoreDown = errors.New("store unavailable")

// writeTestConfig writes a quiet config file and returns its path.
func writeTestConfig(t *testing.T, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigYAML+extra), 0o644))
	return path
}

type cmdResult struct {
	out    string
	errOut string
	err    error
}

// executeCommand runs a fresh command tree with the given args and stdin.
func executeCommand(t *testing.T, stores storeProvider, stdin string, args ...string) cmdResult {
	t.Helper()
	return executeWithConfig(t, stores, writeTestConfig(t, ""), stdin, args...)
}

func executeWithConfig(t *testing.T, stores storeProvider, cfgPath, stdin string, args ...string) cmdResult {
	t.Helper()
	root := newRootCommand(dependencies{stores: stores})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(bytes.NewBufferString(stdin))
	root.SetArgs(append(args, "--config", cfgPath))
	err := root.ExecuteContext(context.Background())
	return cmdResult{out: out.String(), errOut: errOut.String(), err: err}
}

// writeTrace saves events as a JSONL trace and returns its path.
func writeTrace(t *testing.T, events []schemas.PointerEvent) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, trace.WriteAll(f, events))
	require.NoError(t, f.Close())
	return path
}

// slowDrag moves the content 50px with every move below flick speed.
func slowDrag() []schemas.PointerEvent {
	return trace.Drag(195, 300, []float64{-10, -10, -10, -10, -10}, 100, 1)
}
