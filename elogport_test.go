package elogport

import (
	"context"
	"os"
	"path/filepath"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/linchenxuan/elogport/channel"
	"github.com/linchenxuan/elogport/elog"
	"github.com/linchenxuan/elogport/plugin"
	"github.com/linchenxuan/elogport/port"
	"github.com/linchenxuan/elogport/rtt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainProbe(cb *rtt.ControlBlock, idx int) string {
	var out []byte
	buf := make([]byte, 128)
	for {
		n := cb.Read(idx, buf)
		if n == 0 {
			return string(out)
		}
		out = append(out, buf[:n]...)
	}
}

// TestNewApp verifies the default target logs to probe channel 1.
func TestNewApp(t *testing.T) {
	app, err := NewApp(nil)
	require.NoError(t, err)
	defer app.Stop()

	assert.Same(t, app.Logger, elog.Default())
	assert.Equal(t, port.Hooks(app.Backend), port.Default())
	assert.Equal(t, 1, app.Kernel.Mutexes())

	up := app.Probe.UpBuffers()
	require.Len(t, up, 1)
	assert.Equal(t, 1, up[0].Index)
	assert.Equal(t, "SysView", up[0].Name)

	assert.Regexp(t, `^I/elogd \[\d+ P\] elogport initialized channel=default index=1\n$`, drainProbe(app.Probe, 1))
}

// TestAppTaskInfo verifies a task name reaches the process info field.
func TestAppTaskInfo(t *testing.T) {
	app, err := NewApp(nil)
	require.NoError(t, err)
	defer app.Stop()
	drainProbe(app.Probe, 1)

	app.Kernel.Go(context.Background(), "sensor", func(ctx context.Context) {
		app.Logger.Warn().Ctx(ctx).Int("value", 7).Msg("reading")
	})
	app.Kernel.Wait()

	assert.Regexp(t, regexp.MustCompile(`^W/elogd \[\d+ sensor\] reading value=7\n$`), drainProbe(app.Probe, 1))
}

// TestAppFileChannel verifies a configured capture file replaces the probe.
func TestAppFileChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.log")
	cfg := DefaultAppCfg()
	cfg.Channel = "capture"
	cfg.Plugins = map[string]any{
		string(plugin.Channel): map[string]any{
			channel.FileFactoryName: map[string]any{"tag": "capture", "path": path},
		},
	}

	app, err := NewApp(cfg)
	require.NoError(t, err)
	app.Logger.Error().Str("op", "flash").Msg("write failed")

	fc, ok := app.Channel.(*channel.FileChannel)
	require.True(t, ok)
	require.NoError(t, fc.Flush())
	app.Stop()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "elogport initialized")
	assert.Contains(t, string(content), "E/elogd")
	assert.Contains(t, string(content), "write failed op=flash\n")
	assert.Empty(t, app.Probe.UpBuffers())
}

// TestNewAppErrors verifies configuration mistakes are reported, not panicked.
func TestNewAppErrors(t *testing.T) {
	t.Run("unknown channel", func(t *testing.T) {
		cfg := DefaultAppCfg()
		cfg.Channel = "missing"
		cfg.Plugins = map[string]any{
			string(plugin.Channel): map[string]any{
				channel.NopFactoryName: map[string]any{},
			},
		}
		_, err := NewApp(cfg)
		assert.ErrorIs(t, err, plugin.ErrPluginNotFound)
	})

	t.Run("channel index mismatch", func(t *testing.T) {
		cfg := DefaultAppCfg()
		cfg.Plugins = map[string]any{
			string(plugin.Channel): map[string]any{
				channel.RTTFactoryName: map[string]any{"tag": plugin.DefaultInsName, "index": 2},
			},
		}
		_, err := NewApp(cfg)
		assert.ErrorIs(t, err, ErrBackendInit)
	})

	t.Run("mutex off on probe channel", func(t *testing.T) {
		cfg := DefaultAppCfg()
		cfg.Backend.MutexEnabled = false
		_, err := NewApp(cfg)
		assert.ErrorIs(t, err, ErrUnsafeNoMutex)
	})

	t.Run("bad log config", func(t *testing.T) {
		cfg := DefaultAppCfg()
		cfg.Log.FilterLevel = "loud"
		_, err := NewApp(cfg)
		assert.Error(t, err)
	})

	t.Run("bad kernel config", func(t *testing.T) {
		cfg := DefaultAppCfg()
		cfg.Kernel.TickRateHz = -1
		_, err := NewApp(cfg)
		assert.Error(t, err)
	})
}

// TestAppStop verifies Stop silences the logger.
func TestAppStop(t *testing.T) {
	app, err := NewApp(nil)
	require.NoError(t, err)

	assert.NotPanics(t, app.Stop)
	assert.Contains(t, drainProbe(app.Probe, 1), "elogport shutting down")
	app.Logger.Info().Msg("after stop")
	assert.Empty(t, drainProbe(app.Probe, 1))
}

// TestAppMutexOff verifies which channels may run without the backend mutex.
func TestAppMutexOff(t *testing.T) {
	t.Run("single writer", func(t *testing.T) {
		cfg := DefaultAppCfg()
		cfg.Backend.MutexEnabled = false
		cfg.SingleWriter = true
		app, err := NewApp(cfg)
		require.NoError(t, err)
		defer app.Stop()
		assert.Zero(t, app.Kernel.Mutexes())
		assert.Contains(t, drainProbe(app.Probe, 1), "elogport initialized")
	})

	t.Run("file channel", func(t *testing.T) {
		cfg := DefaultAppCfg()
		cfg.Backend.MutexEnabled = false
		cfg.Plugins = map[string]any{
			string(plugin.Channel): map[string]any{
				channel.FileFactoryName: map[string]any{
					"tag":  plugin.DefaultInsName,
					"path": filepath.Join(t.TempDir(), "capture.log"),
				},
			},
		}
		app, err := NewApp(cfg)
		require.NoError(t, err)
		app.Stop()
	})
}

// TestAppConcurrentTasks verifies lines from many tasks reach the probe
// whole and none are lost.
func TestAppConcurrentTasks(t *testing.T) {
	const tasks, lines = 8, 500

	cfg := DefaultAppCfg()
	cfg.Backend.UpBufferSize = 1 << 20
	app, err := NewApp(cfg)
	require.NoError(t, err)
	defer app.Stop()
	drainProbe(app.Probe, 1)

	for i := 0; i < tasks; i++ {
		app.Kernel.Go(context.Background(), fmt.Sprintf("t%d", i), func(ctx context.Context) {
			for j := 0; j < lines; j++ {
				app.Logger.Info().Ctx(ctx).Msg("line")
			}
		})
	}
	app.Kernel.Wait()

	out := strings.Split(strings.TrimSuffix(drainProbe(app.Probe, 1), "\n"), "\n")
	require.Len(t, out, tasks*lines)
	re := regexp.MustCompile(`^I/elogd \[\d+ t[0-7]\] line$`)
	for _, line := range out {
		require.Regexp(t, re, line)
	}
}

// TestAppLineFitsProbe verifies the longest line still fits the up buffer.
func TestAppLineFitsProbe(t *testing.T) {
	cfg := DefaultAppCfg()
	require.Equal(t, 1024, cfg.Backend.UpBufferSize)
	app, err := NewApp(cfg)
	require.NoError(t, err)
	defer app.Stop()
	drainProbe(app.Probe, 1)

	app.Logger.Info().Msg(strings.Repeat("x", 2000))
	out := drainProbe(app.Probe, 1)
	assert.Len(t, out, 1023)
	assert.True(t, strings.HasSuffix(out, "x\n"))
	assert.Equal(t, 1, strings.Count(out, "\n"))
}
