// Package plugin instantiates named components from configuration maps
// through registered factories.
package plugin

// Type is the type of plugin supported by the system.
type Type string

const (
	// Channel is the plugin type of output channels.
	Channel Type = "channel"
)

// Factory is the interface for plugin factories.
type Factory interface {
	// Type returns the plugin type.
	Type() Type
	// Name returns the name of the plugin implementation.
	Name() string
	// ConfigType returns an empty struct that represents the plugin's configuration.
	// This struct will be populated by the manager using mapstructure.
	ConfigType() any
	// Setup initializes a plugin instance based on the configuration.
	Setup(any) (Plugin, error)
	// Destroy releases an instance created by Setup.
	Destroy(Plugin)
}

// Plugin is an instance created by a Factory.
type Plugin interface {
	// FactoryName returns the name of the factory that created the instance.
	FactoryName() string
}
