package channel

import (
	"fmt"
	"os"

	"github.com/linchenxuan/elogport/elog"
	"github.com/linchenxuan/elogport/plugin"
	"github.com/linchenxuan/elogport/port"
	"github.com/linchenxuan/elogport/rtt"
)

// Factory names under plugin.Channel.
const (
	ConsoleFactoryName = "console"
	RTTFactoryName     = "rtt"
	FileFactoryName    = "file"
	NopFactoryName     = "nop"
)

// Plugin is an output channel built by the plugin manager.
type Plugin interface {
	plugin.Plugin
	port.OutputChannel
}

// Configurable is implemented by channels that must be set up by the backend
// init hook.
type Configurable interface {
	BackendOptions() []port.Option
}

// SingleProducer is implemented by channels whose Write must not run
// concurrently.
type SingleProducer interface {
	SingleProducer() bool
}

// RecordLimiter is implemented by channels that cannot hold a record longer
// than MaxRecord bytes.
type RecordLimiter interface {
	MaxRecord(cfg *port.BackendCfg) int
}

// NeedsMutex reports whether p is unsafe to share between tasks without the
// backend mutex.
func NeedsMutex(p Plugin) bool {
	sp, ok := p.(SingleProducer)
	return ok && sp.SingleProducer()
}

// BackendOptions returns the options that make p the active backend channel.
func BackendOptions(p Plugin) []port.Option {
	if c, ok := p.(Configurable); ok {
		return c.BackendOptions()
	}
	return []port.Option{port.WithChannel(p)}
}

// Register adds every channel factory to m. cb backs the rtt factory; nil
// leaves it out.
func Register(m *plugin.Manager, cb *rtt.ControlBlock) {
	m.RegisterFactory(&consoleFactory{})
	m.RegisterFactory(&fileFactory{})
	m.RegisterFactory(&nopFactory{})
	if cb != nil {
		m.RegisterFactory(&rttFactory{cb: cb})
	}
}

// Lookup returns the channel instance registered under name.
func Lookup(m *plugin.Manager, name string) (Plugin, error) {
	return plugin.Get[Plugin](m, plugin.Channel, name)
}

// ConsoleCfg configures a console channel.
type ConsoleCfg struct {
	Tag    string `mapstructure:"tag"`
	Stderr bool   `mapstructure:"stderr"`
}

type consoleChannel struct {
	*port.WriterChannel
}

func (consoleChannel) FactoryName() string { return ConsoleFactoryName }

type consoleFactory struct{}

func (f *consoleFactory) Type() plugin.Type { return plugin.Channel }
func (f *consoleFactory) Name() string      { return ConsoleFactoryName }
func (f *consoleFactory) ConfigType() any   { return &ConsoleCfg{} }

func (f *consoleFactory) Setup(cfgAny any) (plugin.Plugin, error) {
	cfg, ok := cfgAny.(*ConsoleCfg)
	if !ok {
		return nil, fmt.Errorf("console setup: unexpected config %T", cfgAny)
	}
	if cfg.Stderr {
		return consoleChannel{port.NewWriterChannel("stderr", os.Stderr)}, nil
	}
	return consoleChannel{port.NewConsoleChannel()}, nil
}

func (f *consoleFactory) Destroy(plugin.Plugin) {}

// RTTCfg configures a probe channel.
type RTTCfg struct {
	Tag   string `mapstructure:"tag"`
	Index int    `mapstructure:"index"`
	Mode  string `mapstructure:"mode"`
}

type rttChannel struct {
	*rtt.Channel
}

func (rttChannel) FactoryName() string { return RTTFactoryName }

type rttFactory struct {
	cb *rtt.ControlBlock
}

func (f *rttFactory) Type() plugin.Type { return plugin.Channel }
func (f *rttFactory) Name() string      { return RTTFactoryName }
func (f *rttFactory) ConfigType() any   { return &RTTCfg{Index: 1} }

func (f *rttFactory) Setup(cfgAny any) (plugin.Plugin, error) {
	cfg, ok := cfgAny.(*RTTCfg)
	if !ok {
		return nil, fmt.Errorf("rtt setup: unexpected config %T", cfgAny)
	}
	ch, err := rtt.NewChannel(f.cb, cfg.Index, rtt.ParseMode(cfg.Mode))
	if err != nil {
		return nil, err
	}
	return rttChannel{ch}, nil
}

func (f *rttFactory) Destroy(plugin.Plugin) {}

type fileFactory struct{}

func (f *fileFactory) Type() plugin.Type { return plugin.Channel }
func (f *fileFactory) Name() string      { return FileFactoryName }
func (f *fileFactory) ConfigType() any   { return &FileCfg{} }

func (f *fileFactory) Setup(cfgAny any) (plugin.Plugin, error) {
	cfg, ok := cfgAny.(*FileCfg)
	if !ok {
		return nil, fmt.Errorf("file setup: unexpected config %T", cfgAny)
	}
	fc, err := NewFileChannel(*cfg)
	if err != nil {
		return nil, err
	}
	return fc, nil
}

func (f *fileFactory) Destroy(p plugin.Plugin) {
	fc, ok := p.(*FileChannel)
	if !ok {
		return
	}
	if err := fc.Close(); err != nil {
		elog.Error().Err(err).Str("path", fc.cfg.Path).Msg("close capture file")
	}
}

// NopCfg configures the channel that discards output.
type NopCfg struct {
	Tag string `mapstructure:"tag"`
}

type nopChannel struct {
	port.NopChannel
}

func (nopChannel) FactoryName() string { return NopFactoryName }

type nopFactory struct{}

func (f *nopFactory) Type() plugin.Type { return plugin.Channel }
func (f *nopFactory) Name() string      { return NopFactoryName }
func (f *nopFactory) ConfigType() any   { return &NopCfg{} }

func (f *nopFactory) Setup(any) (plugin.Plugin, error) {
	return nopChannel{}, nil
}

func (f *nopFactory) Destroy(plugin.Plugin) {}
