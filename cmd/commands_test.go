package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orchestrator/internal/readiness"
	"orchestrator/internal/server"
)

// prepare attaches a background context and captures the output of c.
func prepare(c *cobra.Command) (*bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	c.SetContext(context.Background())
	c.SetOut(&out)
	c.SetErr(&errOut)
	return &out, &errOut
}

// isolateConfig makes resolveConfiguration use only the given defines.
func isolateConfig(t *testing.T, location string, defines ...string) {
	t.Helper()
	origConfig, origDefines, origNoEnv := rootConfig, rootDefines, rootNoEnv
	t.Cleanup(func() { rootConfig, rootDefines, rootNoEnv = origConfig, origDefines, origNoEnv })
	rootConfig, rootDefines, rootNoEnv = location, defines, true
}

func TestCompareCommand(t *testing.T) {
	tests := []struct {
		a, b string
		want string
	}{
		{"1.2.3", "1.2.3-rc1", "1"},
		{"1.2.3.5", "1.2.3.10", "-1"},
		{"2.0", "2.0.0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			out, _ := prepare(compareCmd)
			require.NoError(t, compareCmd.RunE(compareCmd, []string{tt.a, tt.b}))
			assert.Equal(t, tt.want+"\n", out.String())
		})
	}

	prepare(compareCmd)
	assert.Error(t, compareCmd.RunE(compareCmd, []string{"1.x", "1.0"}))
}

func TestGateCommand(t *testing.T) {
	orig := gateMin
	defer func() { gateMin = orig }()

	gateMin = "6.0"
	out, _ := prepare(gateCmd)
	require.NoError(t, gateCmd.RunE(gateCmd, []string{"6.0.0.81631"}))
	assert.Contains(t, out.String(), "at least 6.0")

	err := gateCmd.RunE(gateCmd, []string{"5.9.9"})
	require.Error(t, err)
	assert.Equal(t, ExitCodeError, getExitCode(err))

	gateMin = "six"
	assert.Error(t, gateCmd.RunE(gateCmd, []string{"6.0"}))
}

func TestParseMajorMinor(t *testing.T) {
	major, minor, err := parseMajorMinor("6.1")
	require.NoError(t, err)
	assert.Equal(t, 6, major)
	assert.Equal(t, 1, minor)

	major, minor, err = parseMajorMinor("7")
	require.NoError(t, err)
	assert.Equal(t, 7, major)
	assert.Equal(t, 0, minor)

	_, _, err = parseMajorMinor("6.x")
	assert.Error(t, err)
}

func TestConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orchestrator.properties")
	require.NoError(t, os.WriteFile(path, []byte("server.port=9000\nserver.url=http://localhost:${server.port}\nname=file\n"), 0o644))
	isolateConfig(t, path, "name=explicit")

	origOutput, origPrefix := configOutput, configPrefix
	defer func() { configOutput, configPrefix = origOutput, origPrefix }()

	t.Run("single key", func(t *testing.T) {
		out, _ := prepare(configCmd)
		require.NoError(t, runConfig(configCmd, []string{"server.url", "name"}))
		assert.Equal(t, "http://localhost:9000\nexplicit\n", out.String())
	})

	t.Run("unknown key", func(t *testing.T) {
		prepare(configCmd)
		assert.Error(t, runConfig(configCmd, []string{"nope"}))
	})

	t.Run("yaml with prefix", func(t *testing.T) {
		configOutput, configPrefix = "yaml", "server."
		out, _ := prepare(configCmd)
		require.NoError(t, runConfig(configCmd, nil))
		assert.Contains(t, out.String(), "server.port: \"9000\"\n")
		assert.Contains(t, out.String(), "server.url: http://localhost:9000\n")
		assert.NotContains(t, out.String(), "name:")
	})

	t.Run("table", func(t *testing.T) {
		configOutput, configPrefix = "table", ""
		out, _ := prepare(configCmd)
		require.NoError(t, runConfig(configCmd, nil))
		assert.Contains(t, out.String(), "server.port")
		assert.Contains(t, out.String(), "explicit")
	})

	t.Run("unknown format", func(t *testing.T) {
		configOutput, configPrefix = "xml", ""
		prepare(configCmd)
		assert.Error(t, runConfig(configCmd, nil))
	})
}

func TestConfigCommandFailsOnBadResource(t *testing.T) {
	isolateConfig(t, filepath.Join(t.TempDir(), "missing.properties"))
	prepare(configCmd)
	assert.Error(t, runConfig(configCmd, nil))
}

func TestRunCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
	isolateConfig(t, "", timeoutKey+"=10s")

	origPrefix, origEnv := runPrefix, runEnv
	defer func() { runPrefix, runEnv = origPrefix, origEnv }()
	runPrefix = "> "
	runEnv = []string{"GREETING=hello world"}

	out, errOut := prepare(runCmd)
	require.NoError(t, runRun(runCmd, []string{"/bin/sh", "-c", `echo "$GREETING"; echo oops >&2`}))
	assert.Equal(t, "> hello world\n", out.String())
	assert.Equal(t, "> oops\n", errOut.String())

	prepare(runCmd)
	err := runRun(runCmd, []string{"/bin/sh", "-c", "exit 5"})
	require.Error(t, err)
	assert.Equal(t, 5, getExitCode(err))

	prepare(runCmd)
	err = runRun(runCmd, []string{"definitely-not-a-real-binary-4242"})
	require.Error(t, err)
	assert.Equal(t, ExitCodeStartFailed, getExitCode(err))
}

func TestRunCommandTimeoutFromConfiguration(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sleep")
	}
	isolateConfig(t, "", timeoutKey+"=200ms")

	prepare(runCmd)
	started := time.Now()
	err := runRun(runCmd, []string{"sleep", "10"})
	require.Error(t, err)
	assert.Equal(t, ExitCodeTimeout, getExitCode(err))
	assert.Less(t, time.Since(started), 5*time.Second)
}

func TestBuildCommand(t *testing.T) {
	origEnv, origUnset, origClean, origDir := runEnv, runUnsetEnv, runCleanEnv, runDir
	defer func() { runEnv, runUnsetEnv, runCleanEnv, runDir = origEnv, origUnset, origClean, origDir }()

	runEnv = []string{"ONLY=this"}
	runUnsetEnv = nil
	runCleanEnv = true
	runDir = "/tmp"

	c, err := buildCommand([]string{"env", "-0"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ONLY": "this"}, c.Environment())
	assert.Equal(t, []string{"-0"}, c.Arguments())
	assert.Equal(t, "/tmp", c.Directory())

	runEnv = []string{"broken"}
	_, err = buildCommand([]string{"env"})
	assert.Error(t, err)
}

func TestWaitCommand(t *testing.T) {
	origInterval, origAttempts, origQuiet := waitInterval, waitAttempts, waitQuiet
	defer func() { waitInterval, waitAttempts, waitQuiet = origInterval, origAttempts, origQuiet }()
	waitInterval, waitAttempts, waitQuiet = 5*time.Millisecond, 3, false

	marker := filepath.Join(t.TempDir(), "ready")

	prepare(waitCmd)
	err := runWait(waitCmd, []string{marker})
	require.Error(t, err)
	assert.True(t, errors.Is(err, readiness.ErrNotReady))
	assert.Equal(t, ExitCodeNotReady, getExitCode(err))

	require.NoError(t, os.WriteFile(marker, nil, 0o644))
	out, _ := prepare(waitCmd)
	require.NoError(t, runWait(waitCmd, []string{marker}))
	assert.True(t, strings.Contains(out.String(), "is ready after 1 attempt"))
}

func TestSuperviseCommandExitedEarly(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
	dir := t.TempDir()

	origReady, origStop, origInterval, origQuiet := superviseReady, superviseStopRequest, superviseInterval, superviseQuiet
	defer func() {
		superviseReady, superviseStopRequest, superviseInterval, superviseQuiet = origReady, origStop, origInterval, origQuiet
	}()
	superviseReady = filepath.Join(dir, "ready")
	superviseStopRequest = filepath.Join(dir, "stop")
	superviseInterval = 10 * time.Millisecond
	superviseQuiet = true

	prepare(superviseCmd)
	err := runSupervise(superviseCmd, []string{"/bin/sh", "-c", "exit 4"})
	require.Error(t, err)
	assert.Equal(t, ExitCodeNotReady, getExitCode(err))
}

func TestSuperviseCommandServerExits(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
	dir := t.TempDir()

	origReady, origStop, origInterval, origQuiet := superviseReady, superviseStopRequest, superviseInterval, superviseQuiet
	defer func() {
		superviseReady, superviseStopRequest, superviseInterval, superviseQuiet = origReady, origStop, origInterval, origQuiet
	}()
	superviseReady = filepath.Join(dir, "ready")
	superviseStopRequest = filepath.Join(dir, "stop")
	superviseInterval = 10 * time.Millisecond
	superviseQuiet = true

	_, errOut := prepare(superviseCmd)
	err := runSupervise(superviseCmd, []string{"/bin/sh", "-c", `touch "$0"; sleep 0.2; exit 6`, superviseReady})
	require.Error(t, err)
	assert.Equal(t, 6, getExitCode(err))
	assert.Contains(t, errOut.String(), "is ready")
}

func TestSuperviseCommandKillsUnresponsiveServer(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
	dir := t.TempDir()

	origReady, origStop, origInterval, origQuiet, origAttempts := superviseReady, superviseStopRequest, superviseInterval, superviseQuiet, superviseStopAttempts
	defer func() {
		superviseReady, superviseStopRequest, superviseInterval, superviseQuiet, superviseStopAttempts = origReady, origStop, origInterval, origQuiet, origAttempts
	}()
	superviseReady = filepath.Join(dir, "ready")
	superviseStopRequest = filepath.Join(dir, "stop")
	superviseInterval = 10 * time.Millisecond
	superviseStopAttempts = 5
	superviseQuiet = true

	prepare(superviseCmd)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	superviseCmd.SetContext(ctx)
	time.AfterFunc(300*time.Millisecond, cancel)

	started := time.Now()
	err := runSupervise(superviseCmd, []string{"/bin/sh", "-c", `touch "$0"; sleep 30`, superviseReady})
	require.Error(t, err)
	assert.True(t, errors.Is(err, server.ErrKilled))
	assert.Less(t, time.Since(started), 5*time.Second)
}
