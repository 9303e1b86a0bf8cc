package elogport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/linchenxuan/elogport/elog"
	"github.com/linchenxuan/elogport/event"
)

const (
	_maxCommandLen   = 128
	_commandTimeout  = time.Second
	_shellPollPeriod = 20 * time.Millisecond
)

// ErrBadCommand is returned for a host command that cannot be applied.
var ErrBadCommand = errors.New("bad host command")

// HandleCommand applies one command line from the probe host:
//
//	level <name>          set the filter level
//	fmt <level> <flags>   set the format of one level, e.g. "fmt info lvl|time"
//	stop | start          gate output
func (a *App) HandleCommand(line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return fmt.Errorf("%w: empty", ErrBadCommand)
	}

	switch args[0] {
	case "level":
		if len(args) != 2 {
			return fmt.Errorf("%w: usage: level <name>", ErrBadCommand)
		}
		lv, ok := elog.LookupLevel(args[1])
		if !ok {
			return fmt.Errorf("%w: unknown level %q", ErrBadCommand, args[1])
		}
		a.Logger.SetFilterLevel(lv)
		return a.Events.Publish(event.LevelChange, lv)
	case "fmt":
		if len(args) != 3 {
			return fmt.Errorf("%w: usage: fmt <level> <flags>", ErrBadCommand)
		}
		lv, ok := elog.LookupLevel(args[1])
		if !ok {
			return fmt.Errorf("%w: unknown level %q", ErrBadCommand, args[1])
		}
		a.Logger.SetFmt(lv, elog.ParseFmt(args[2]))
		return nil
	case "stop":
		a.Logger.Stop()
		return nil
	case "start":
		a.Logger.Start()
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", ErrBadCommand, args[0])
	}
}

// ServeHostCommands polls the down buffer of the backend channel until ctx
// ends and publishes every newline-terminated line on event.HostCommand.
// Lines longer than the command limit are discarded.
func (a *App) ServeHostCommands(ctx context.Context) {
	idx := a.Backend.Cfg().ChannelIndex
	ticker := time.NewTicker(_shellPollPeriod)
	defer ticker.Stop()

	var pending []byte
	buf := make([]byte, 64)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for n := a.Probe.ReadDown(idx, buf); n > 0; n = a.Probe.ReadDown(idx, buf) {
			pending = append(pending, buf[:n]...)
		}
		for {
			i := bytes.IndexByte(pending, '\n')
			if i < 0 {
				break
			}
			line := strings.TrimSpace(string(pending[:i]))
			pending = pending[i+1:]
			if line == "" {
				continue
			}
			a.Logger.Info().Ctx(ctx).Str("command", line).Msg("host command")
			if err := a.Events.Publish(event.HostCommand, line); err != nil {
				a.Logger.Warn().Ctx(ctx).Err(err).Msg("host command not handled")
			}
		}
		if len(pending) > _maxCommandLen {
			a.Logger.Warn().Ctx(ctx).Int("len", len(pending)).Msg("host command too long")
			pending = pending[:0]
		}
	}
}

func (a *App) subscribeCommands() error {
	if err := a.Events.NewTopic(event.HostCommand, _commandTimeout); err != nil {
		return err
	}
	if err := a.Events.NewTopic(event.LevelChange, _commandTimeout); err != nil {
		return err
	}
	return a.Events.RegisterSubscriber(event.HostCommand, func(payload any) {
		line, _ := payload.(string)
		if err := a.HandleCommand(line); err != nil {
			a.Logger.Warn().Err(err).Str("command", line).Msg("host command rejected")
		}
	})
}
