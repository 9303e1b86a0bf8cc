package channel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/linchenxuan/elogport/plugin"
	"github.com/linchenxuan/elogport/port"
	"github.com/linchenxuan/elogport/rtt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(cb *rtt.ControlBlock) *plugin.Manager {
	m := plugin.NewManager()
	Register(m, cb)
	return m
}

func TestRegisterWithoutControlBlock(t *testing.T) {
	m := newManager(nil)
	err := m.SetupPlugins(map[string]any{
		"channel": map[string]any{
			"rtt": map[string]any{"tag": "probe"},
		},
	})
	assert.ErrorIs(t, err, plugin.ErrPluginNotFound)
}

func TestRTTFactory(t *testing.T) {
	cb := rtt.NewControlBlock(0, 0)
	m := newManager(cb)
	require.NoError(t, m.SetupPlugins(map[string]any{
		"channel": map[string]any{
			"rtt": map[string]any{"tag": plugin.DefaultInsName, "index": 1, "mode": "skip"},
		},
	}))

	ch, err := Lookup(m, plugin.DefaultInsName)
	require.NoError(t, err)
	assert.Equal(t, RTTFactoryName, ch.FactoryName())

	cfg := port.DefaultCfg()
	cfg.UpBufferSize = 32
	b := port.NewBackend(cfg, BackendOptions(ch)...)
	require.Equal(t, port.NoErr, b.Init())

	b.Output([]byte("probe"))
	buf := make([]byte, 32)
	n := cb.Read(1, buf)
	assert.Equal(t, "probe", string(buf[:n]))
}

func TestRTTFactoryRejectsLossyModes(t *testing.T) {
	for _, mode := range []string{"block", "trim"} {
		t.Run(mode, func(t *testing.T) {
			m := newManager(rtt.NewControlBlock(0, 0))
			err := m.SetupPlugins(map[string]any{
				"channel": map[string]any{
					"rtt": map[string]any{"mode": mode},
				},
			})
			assert.ErrorIs(t, err, plugin.ErrFactorySetup)
		})
	}
}

func TestFileFactory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.log")
	m := newManager(nil)
	require.NoError(t, m.SetupPlugins(map[string]any{
		"channel": map[string]any{
			"file": map[string]any{"tag": "capture", "path": path},
		},
	}))

	ch, err := Lookup(m, "capture")
	require.NoError(t, err)
	fc, ok := ch.(*FileChannel)
	require.True(t, ok)
	assert.Equal(t, "file:capture", fc.Name())

	b := port.NewBackend(port.DefaultCfg(), BackendOptions(ch)...)
	require.Equal(t, port.NoErr, b.Init())
	b.Output([]byte("to disk\n"))
	require.NoError(t, fc.Flush())

	m.DestroyPlugins()
	assert.ErrorIs(t, fc.Flush(), ErrClosed)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "to disk\n", string(content))
}

func TestFileFactoryBadConfig(t *testing.T) {
	m := newManager(nil)
	err := m.SetupPlugins(map[string]any{
		"channel": map[string]any{
			"file": map[string]any{"splitHour": 30},
		},
	})
	assert.ErrorIs(t, err, plugin.ErrFactorySetup)

	err = m.SetupPlugins(map[string]any{
		"channel": map[string]any{
			"file": map[string]any{"splitHour": "noon"},
		},
	})
	assert.ErrorIs(t, err, plugin.ErrConfigDecode)
}

func TestConsoleAndNopFactories(t *testing.T) {
	m := newManager(nil)
	require.NoError(t, m.SetupPlugins(map[string]any{
		"channel": map[string]any{
			"console": map[string]any{"stderr": true},
			"nop":     map[string]any{},
		},
	}))

	console, err := Lookup(m, ConsoleFactoryName)
	require.NoError(t, err)
	named, ok := console.(port.NamedChannel)
	require.True(t, ok)
	assert.Equal(t, "stderr", named.Name())

	nop, err := Lookup(m, NopFactoryName)
	require.NoError(t, err)
	assert.NotPanics(t, func() { nop.Write([]byte("discarded")) })
	assert.Len(t, BackendOptions(nop), 1)

	_, err = Lookup(m, "missing")
	assert.ErrorIs(t, err, plugin.ErrPluginNotFound)
}
