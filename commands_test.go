package elogport

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/linchenxuan/elogport/elog"
	"github.com/linchenxuan/elogport/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleCommand(t *testing.T) {
	app, err := NewApp(nil)
	require.NoError(t, err)
	defer app.Stop()

	var mu sync.Mutex
	var changes []elog.Level
	require.NoError(t, app.Events.RegisterSubscriber(event.LevelChange, func(payload any) {
		mu.Lock()
		changes = append(changes, payload.(elog.Level))
		mu.Unlock()
	}))

	require.NoError(t, app.HandleCommand("level warn"))
	assert.Equal(t, elog.WarnLevel, app.Logger.FilterLevel())
	mu.Lock()
	assert.Equal(t, []elog.Level{elog.WarnLevel}, changes)
	mu.Unlock()

	require.NoError(t, app.HandleCommand("fmt warn lvl"))
	assert.Equal(t, elog.FmtLvl, app.Logger.Fmt(elog.WarnLevel))

	require.NoError(t, app.HandleCommand("stop"))
	assert.False(t, app.Logger.Started())
	require.NoError(t, app.HandleCommand("  start  "))
	assert.True(t, app.Logger.Started())

	for _, bad := range []string{"", "level", "level loud", "fmt info", "fmt loud lvl", "reboot"} {
		assert.ErrorIs(t, app.HandleCommand(bad), ErrBadCommand, bad)
	}
}

func TestServeHostCommands(t *testing.T) {
	app, err := NewApp(nil)
	require.NoError(t, err)
	defer app.Stop()
	drainProbe(app.Probe, 1)

	ctx, cancel := context.WithCancel(context.Background())
	app.Kernel.Go(ctx, "shell", app.ServeHostCommands)

	// split across writes, two lines in one
	app.Probe.HostWrite(1, []byte("lev"))
	app.Probe.HostWrite(1, []byte("el error\nbogus\n"))

	var seen string
	require.Eventually(t, func() bool {
		seen += drainProbe(app.Probe, 1)
		return app.Logger.FilterLevel() == elog.ErrorLevel
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	app.Kernel.Wait()
	seen += drainProbe(app.Probe, 1)
	assert.Contains(t, seen, "shell] host command command=\"level error\"")
	// the rejection is a warning and the filter is now error
	assert.False(t, strings.Contains(seen, "host command rejected"))
}
