// Command elogd runs a logging target with a few demo tasks and serves the
// probe buffers over HTTP, standing in for a debug probe host.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/linchenxuan/elogport"
	"github.com/linchenxuan/elogport/channel"
	"github.com/linchenxuan/elogport/elog"
	"github.com/linchenxuan/elogport/plugin"
)

type options struct {
	Addr       string        `long:"addr" default:"127.0.0.1:8090" description:"probe host listen address"`
	Channel    string        `long:"channel" default:"rtt" choice:"rtt" choice:"file" choice:"console" description:"output channel"`
	Index      int           `long:"index" default:"1" description:"probe channel index"`
	Mode       string        `long:"mode" default:"skip" choice:"skip" description:"probe buffer mode when full"`
	UpSize     int           `long:"up-size" default:"1024" description:"probe up buffer size in bytes"`
	DownSize   int           `long:"down-size" default:"64" description:"probe down buffer size in bytes"`
	FilePath   string        `long:"file" default:"./elog.capture" description:"capture file for the file channel"`
	Framed     bool          `long:"framed" description:"length-delimit records in the capture file"`
	NoMutex    bool          `long:"no-mutex" description:"run the backend without a mutex, file and console channels only"`
	TickRate   int           `long:"tick-rate" default:"1000" description:"kernel ticks per second"`
	Tasks      int           `long:"tasks" default:"3" description:"number of demo tasks"`
	Interval   time.Duration `long:"interval" default:"1s" description:"demo task log interval"`
	LogLevel   string        `long:"log-level" default:"verbose" description:"least severe level printed"`
	LineMax    int           `long:"line-max" default:"256" description:"longest log line in bytes"`
	MaxMutexes int           `long:"max-mutexes" default:"0" description:"kernel mutex budget, 0 for unlimited"`
}

func main() {
	opts := getCLIArgs()

	app, err := elogport.NewApp(appCfg(opts))
	if err != nil {
		elog.Error().Err(err).Msg("failed to start")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startTasks(ctx, app, opts.Tasks, opts.Interval)

	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           newRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.Logger.Info().Str("addr", opts.Addr).Msg("probe host listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.Logger.Error().Err(err).Msg("probe host failed")
	}

	stop()
	app.Kernel.Wait()
	app.Stop()
}

func getCLIArgs() options {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}
	return opts
}

func appCfg(opts options) *elogport.AppCfg {
	cfg := elogport.DefaultAppCfg()
	cfg.Kernel.TickRateHz = opts.TickRate
	cfg.Kernel.MaxMutexes = opts.MaxMutexes
	cfg.Backend.MutexEnabled = !opts.NoMutex
	cfg.Backend.ChannelIndex = opts.Index
	cfg.Backend.UpBufferSize = opts.UpSize
	cfg.Backend.DownBufferSize = opts.DownSize
	cfg.Log.FilterLevel = opts.LogLevel
	cfg.Log.LineMax = opts.LineMax

	var chCfg map[string]any
	factory := opts.Channel
	switch opts.Channel {
	case channel.FileFactoryName:
		chCfg = map[string]any{"path": opts.FilePath, "framed": opts.Framed, "exclusive": true}
	case channel.ConsoleFactoryName:
		chCfg = map[string]any{}
	default:
		factory = channel.RTTFactoryName
		chCfg = map[string]any{"index": opts.Index, "mode": opts.Mode}
	}
	chCfg["tag"] = plugin.DefaultInsName
	cfg.Plugins = map[string]any{
		string(plugin.Channel): map[string]any{factory: chCfg},
	}
	return cfg
}

// startTasks runs n tasks logging a counter every interval, plus the shell
// task applying host commands sent on the down buffer.
func startTasks(ctx context.Context, app *elogport.App, n int, interval time.Duration) {
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("task%d", i)
		app.Kernel.Go(ctx, name, func(ctx context.Context) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for count := 0; ; count++ {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
				switch {
				case count%10 == 9:
					app.Logger.Warn().Ctx(ctx).Int("count", count).Msg("slow cycle")
				case count%2 == 0:
					app.Logger.Debug().Ctx(ctx).Int("count", count).Msg("cycle")
				default:
					app.Logger.Info().Ctx(ctx).Int("count", count).Msg("cycle")
				}
			}
		})
	}

	app.Kernel.Go(ctx, "shell", app.ServeHostCommands)
}
