// Package elogport assembles a logging target: the scheduler stand-in, the
// probe control block, the output channels, the backend and the package-level
// logger.
package elogport

import (
	"errors"
	"fmt"

	"github.com/linchenxuan/elogport/channel"
	"github.com/linchenxuan/elogport/elog"
	"github.com/linchenxuan/elogport/event"
	"github.com/linchenxuan/elogport/plugin"
	"github.com/linchenxuan/elogport/port"
	"github.com/linchenxuan/elogport/rtos"
	"github.com/linchenxuan/elogport/rtt"
)

var (
	// ErrBackendInit is returned when the backend init hook does not report NoErr.
	ErrBackendInit = errors.New("backend init failed")
	// ErrUnsafeNoMutex is returned when the mutex is off for a single-producer
	// channel and the caller has not promised a single writer.
	ErrUnsafeNoMutex = errors.New("channel needs the backend mutex")
)

// AppCfg configures an App.
type AppCfg struct {
	Kernel  rtos.KernelCfg   `mapstructure:"kernel"`
	Backend *port.BackendCfg `mapstructure:"backend"`
	Log     *elog.LogCfg     `mapstructure:"log"`

	// MaxUpBuffers and MaxDownBuffers size the probe control block.
	MaxUpBuffers   int `mapstructure:"maxUpBuffers"`
	MaxDownBuffers int `mapstructure:"maxDownBuffers"`

	// Plugins is handed to the plugin manager as is. Nil means one probe
	// channel tagged "default" on the backend channel index.
	Plugins map[string]any `mapstructure:"plugins"`

	// Channel names the channel instance the backend writes to.
	Channel string `mapstructure:"channel"`

	// SingleWriter promises that only one task ever logs. It allows
	// Backend.MutexEnabled=false on a single-producer channel.
	SingleWriter bool `mapstructure:"singleWriter"`
}

// DefaultAppCfg returns a configuration that logs to probe channel 1 under a
// 1kHz kernel.
func DefaultAppCfg() *AppCfg {
	return &AppCfg{
		Backend: port.DefaultCfg(),
		Log:     &elog.LogCfg{Tag: "elogd"},
		Channel: plugin.DefaultInsName,
	}
}

// Validate applies defaults and checks every section.
func (cfg *AppCfg) Validate() error {
	if cfg.Backend == nil {
		cfg.Backend = port.DefaultCfg()
	}
	if err := cfg.Backend.Validate(); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	if cfg.Log == nil {
		cfg.Log = &elog.LogCfg{}
	}
	if err := cfg.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := cfg.Kernel.Validate(); err != nil {
		return fmt.Errorf("kernel: %w", err)
	}
	if cfg.Channel == "" {
		cfg.Channel = plugin.DefaultInsName
	}
	if cfg.Plugins == nil {
		cfg.Plugins = map[string]any{
			string(plugin.Channel): map[string]any{
				channel.RTTFactoryName: map[string]any{
					"tag":   cfg.Channel,
					"index": cfg.Backend.ChannelIndex,
				},
			},
		}
	}
	return nil
}

// App is an initialised logging target.
type App struct {
	Kernel        *rtos.Kernel
	Probe         *rtt.ControlBlock
	PluginManager *plugin.Manager
	Channel       channel.Plugin
	Backend       *port.Backend
	Logger        *elog.Logger
	Events        *event.Publisher
}

// NewApp builds every component, initialises the backend and installs the
// backend and logger as the package defaults.
func NewApp(cfg *AppCfg) (*App, error) {
	if cfg == nil {
		cfg = DefaultAppCfg()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	kernel, err := rtos.NewKernel(cfg.Kernel)
	if err != nil {
		return nil, err
	}

	probe := rtt.NewControlBlock(cfg.MaxUpBuffers, cfg.MaxDownBuffers)
	pm := plugin.NewManager()
	channel.Register(pm, probe)
	if err := pm.SetupPlugins(cfg.Plugins); err != nil {
		return nil, fmt.Errorf("setup channels: %w", err)
	}

	ch, err := channel.Lookup(pm, cfg.Channel)
	if err != nil {
		pm.DestroyPlugins()
		return nil, err
	}
	if !cfg.Backend.MutexEnabled && !cfg.SingleWriter && channel.NeedsMutex(ch) {
		pm.DestroyPlugins()
		return nil, fmt.Errorf("%w: %s", ErrUnsafeNoMutex, cfg.Channel)
	}
	if rl, ok := ch.(channel.RecordLimiter); ok {
		if limit := rl.MaxRecord(cfg.Backend); cfg.Log.LineMax > limit {
			cfg.Log.LineMax = limit
		}
	}

	opts := append(channel.BackendOptions(ch),
		port.WithMutexAllocator(kernelMutex(kernel)),
		port.WithTickSource(kernel),
		port.WithTaskSource(kernel),
	)
	backend := port.NewBackend(cfg.Backend, opts...)

	logger, res, err := elog.GlobalInit(cfg.Log, backend)
	if err != nil {
		pm.DestroyPlugins()
		return nil, err
	}
	if res != port.NoErr {
		pm.DestroyPlugins()
		return nil, fmt.Errorf("%w: %s", ErrBackendInit, res)
	}
	port.SetDefault(backend)

	app := &App{
		Kernel:        kernel,
		Probe:         probe,
		PluginManager: pm,
		Channel:       ch,
		Backend:       backend,
		Logger:        logger,
		Events:        event.NewPublisher(),
	}
	if err := app.subscribeCommands(); err != nil {
		pm.DestroyPlugins()
		return nil, err
	}

	logger.Info().Str("channel", cfg.Channel).Int("index", cfg.Backend.ChannelIndex).Msg("elogport initialized")
	return app, nil
}

// Stop stops output and releases every channel. Tasks started on the kernel
// are not waited for.
func (a *App) Stop() {
	a.Logger.Info().Msg("elogport shutting down")
	a.Logger.Stop()
	a.PluginManager.DestroyPlugins()
}

// kernelMutex adapts the kernel mutex pool to the backend allocator.
func kernelMutex(k *rtos.Kernel) port.MutexAllocator {
	return func() (port.Locker, error) {
		mu, err := k.NewMutex()
		if err != nil {
			return nil, err
		}
		return mu, nil
	}
}
