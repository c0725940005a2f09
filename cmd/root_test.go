// cmd/root_test.go
package cmd

import (
	"context"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	res := executeCommand(t, newMemStoreProvider(t), "", "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.out+res.errOut, "scrolllab version "+Version)
}

func TestRootCommand_VersionFlag(t *testing.T) {
	res := executeCommand(t, newMemStoreProvider(t), "", "--version")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "scrolllab version "+Version)
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	root := NewRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"version", "simulate", "replay", "follow", "render", "session", "settings"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRootCommand_InvalidConfigFails(t *testing.T) {
	cfgPath := writeTestConfig(t, "engine:\n  frame_interval: 0s\n")
	res := executeWithConfig(t, newMemStoreProvider(t), cfgPath, "", "settings", "show")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "failed to load or validate config")
	assert.Contains(t, res.err.Error(), "engine.frame_interval")
}

func TestRootCommand_UnreadableConfigFails(t *testing.T) {
	res := executeWithConfig(t, newMemStoreProvider(t), "/nonexistent/dir/config.yaml", "", "settings", "show")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "failed to initialize configuration")
}

func TestInitializeConfig_MissingDefaultFileIsFine(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	v := viper.New()
	require.NoError(t, initializeConfig(v, ""))
}

func TestInitializeConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SCROLLLAB_SCROLL_TECHNIQUE", "IV")
	v := viper.New()
	require.NoError(t, initializeConfig(v, writeTestConfig(t, "")))
	assert.Equal(t, "IV", v.GetString("scroll.technique"))
}

func TestGetConfigFromContext_Missing(t *testing.T) {
	_, err := getConfigFromContext(context.Background())
	assert.Error(t, err)
}
