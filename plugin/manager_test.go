package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockConfig is a mock configuration struct for testing structured config.
type MockConfig struct {
	Path  string
	Index int
	Tag   string
}

// MockFactory is a mock implementation of the Factory interface for testing.
type MockFactory struct {
	PType Type
	PName string

	SetupCount   int
	DestroyCount int
	LastConfig   *MockConfig
}

func (m *MockFactory) Type() Type   { return m.PType }
func (m *MockFactory) Name() string { return m.PName }
func (m *MockFactory) ConfigType() any {
	return &MockConfig{}
}
func (m *MockFactory) Setup(config any) (Plugin, error) {
	m.SetupCount++
	m.LastConfig, _ = config.(*MockConfig)
	return &MockPlugin{FName: m.PName}, nil
}
func (m *MockFactory) Destroy(p Plugin) {
	m.DestroyCount++
}

// MockPlugin is a mock plugin instance for testing.
type MockPlugin struct {
	FName string
}

func (mp *MockPlugin) FactoryName() string {
	return mp.FName
}

func TestManager(t *testing.T) {
	factory := &MockFactory{PType: Channel, PName: "file"}

	t.Run("RegisterFactory", func(t *testing.T) {
		manager := NewManager()
		manager.RegisterFactory(factory)
		assert.NotNil(t, manager.factories[Channel])
		assert.Equal(t, factory, manager.factories[Channel]["file"])
	})

	t.Run("SetupAndGetPlugins", func(t *testing.T) {
		manager := NewManager()
		console := &MockFactory{PType: Channel, PName: "console"}
		file := &MockFactory{PType: Channel, PName: "file"}
		manager.RegisterFactory(console)
		manager.RegisterFactory(file)

		err := manager.SetupPlugins(map[string]any{
			"channel": map[string]any{
				"file": map[string]any{
					"path": "/var/log/capture.log",
					"tag":  "default",
				},
				"console": map[string]any{},
			},
		})
		require.NoError(t, err)
		require.NotNil(t, file.LastConfig)
		assert.Equal(t, "/var/log/capture.log", file.LastConfig.Path)

		p, err := manager.GetPlugin(Channel, "default")
		require.NoError(t, err)
		assert.IsType(t, &MockPlugin{}, p)

		dp, err := manager.GetDefaultPlugin(Channel)
		require.NoError(t, err)
		assert.Equal(t, p, dp)

		cp, err := Get[*MockPlugin](manager, Channel, "console")
		require.NoError(t, err)
		assert.Equal(t, "console", cp.FactoryName())

		_, err = Get[*MockFactory](manager, Channel, "console")
		assert.ErrorIs(t, err, ErrWrongPluginType)
	})

	t.Run("UnknownTypeSkipped", func(t *testing.T) {
		manager := NewManager()
		err := manager.SetupPlugins(map[string]any{"metrics": "whatever"})
		assert.NoError(t, err)

		_, err = manager.GetDefaultPlugin(Channel)
		assert.ErrorIs(t, err, ErrPluginNotFound)
	})

	t.Run("ErrorOnDuplicateTag", func(t *testing.T) {
		manager := NewManager()
		manager.RegisterFactory(&MockFactory{PType: Channel, PName: "rtt"})
		manager.RegisterFactory(&MockFactory{PType: Channel, PName: "file"})

		err := manager.SetupPlugins(map[string]any{
			"channel": map[string]any{
				"rtt":  map[string]any{"tag": "default"},
				"file": map[string]any{"tag": "default"},
			},
		})
		assert.ErrorIs(t, err, ErrDuplicatePlugin)
	})

	t.Run("ErrorOnMissingFactory", func(t *testing.T) {
		manager := NewManager()
		manager.RegisterFactory(&MockFactory{PType: Channel, PName: "rtt"})

		err := manager.SetupPlugins(map[string]any{
			"channel": map[string]any{"nonexistent": map[string]any{}},
		})
		assert.ErrorIs(t, err, ErrPluginNotFound)
	})

	t.Run("ConfigDecoding", func(t *testing.T) {
		manager := NewManager()
		manager.RegisterFactory(&MockFactory{PType: Channel, PName: "rtt"})

		err := manager.SetupPlugins(map[string]any{
			"channel": map[string]any{"rtt": map[string]any{"Index": "one"}},
		})
		assert.ErrorIs(t, err, ErrConfigDecode)

		err = manager.SetupPlugins(map[string]any{"channel": "not-a-map"})
		assert.ErrorIs(t, err, ErrInvalidConfigFormat)

		err = manager.SetupPlugins(map[string]any{
			"channel": map[string]any{"rtt": "not-a-map"},
		})
		assert.ErrorIs(t, err, ErrInvalidConfigFormat)
	})

	t.Run("DestroyPlugins", func(t *testing.T) {
		manager := NewManager()
		f := &MockFactory{PType: Channel, PName: "nop"}
		manager.RegisterFactory(f)
		require.NoError(t, manager.SetupPlugins(map[string]any{
			"channel": map[string]any{"nop": map[string]any{}},
		}))

		manager.DestroyPlugins()
		assert.Equal(t, 1, f.DestroyCount)
		_, err := manager.GetPlugin(Channel, "nop")
		assert.ErrorIs(t, err, ErrPluginNotFound)
	})
}
