package port

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

const (
	// MaxInfoLen bounds every string returned by the info hooks.
	MaxInfoLen = 32
	// MaxTaskNameLen bounds a task name reported by ProcessInfo.
	MaxTaskNameLen = 16
)

// BackendCfg holds the toggles that select the backend capabilities.
// They mirror build-time switches of an embedded port and are fixed for the
// lifetime of a Backend.
type BackendCfg struct {
	// ChannelEnabled turns on the debug-probe output channel.
	ChannelEnabled bool `mapstructure:"channelEnabled"`

	// MutexEnabled turns on mutual exclusion between writers.
	MutexEnabled bool `mapstructure:"mutexEnabled"`

	// ChannelIndex selects the probe channel to configure and write to.
	ChannelIndex int `mapstructure:"channelIndex"`

	// ChannelName is the metadata label registered with the channel.
	ChannelName string `mapstructure:"channelName"`

	// UpBufferSize is the target-to-host buffer size in bytes.
	UpBufferSize int `mapstructure:"upBufferSize"`

	// DownBufferSize is the host-to-target back-channel size in bytes.
	DownBufferSize int `mapstructure:"downBufferSize"`
}

// DefaultCfg returns the stock port configuration: probe channel 1
// named "SysView" with a 1KB up buffer and an 8 byte down buffer.
func DefaultCfg() *BackendCfg {
	return &BackendCfg{
		ChannelEnabled: true,
		MutexEnabled:   true,
		ChannelIndex:   1,
		ChannelName:    "SysView",
		UpBufferSize:   1024,
		DownBufferSize: 8,
	}
}

// Validate fills zero sizes with defaults and rejects impossible values.
func (cfg *BackendCfg) Validate() error {
	if cfg.ChannelIndex < 0 {
		return fmt.Errorf("channel index must be non-negative, got %d", cfg.ChannelIndex)
	}
	if cfg.UpBufferSize < 0 || cfg.DownBufferSize < 0 {
		return fmt.Errorf("buffer sizes must be non-negative, got up=%d down=%d",
			cfg.UpBufferSize, cfg.DownBufferSize)
	}
	if cfg.UpBufferSize == 0 {
		cfg.UpBufferSize = 1024
	}
	if cfg.DownBufferSize == 0 {
		cfg.DownBufferSize = 8
	}
	if cfg.ChannelName == "" {
		cfg.ChannelName = "SysView"
	}
	return nil
}

// DecodeCfg builds a validated BackendCfg from a raw configuration map.
func DecodeCfg(raw map[string]any) (*BackendCfg, error) {
	cfg := DefaultCfg()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: false,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("create backend config decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode backend config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
