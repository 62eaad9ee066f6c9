// Package conf loads and validates application settings from a YAML
// configuration file and TASKERINO_ prefixed environment variables.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Settings is the full application configuration tree.
type Settings struct {
	Debug bool `yaml:"debug"`

	Main struct {
		Name string `yaml:"name"` // instance name used in logs
		Log  struct {
			Enabled bool   `yaml:"enabled"`
			Path    string `yaml:"path"`
		} `yaml:"log"`
	} `yaml:"main"`

	Audio struct {
		Capture struct {
			Device       string `yaml:"device"`       // empty selects the default device
			SampleRate   int    `yaml:"samplerate"`   // capture rate in Hz
			Channels     int    `yaml:"channels"`     // capture channel count
			BufferFrames int    `yaml:"bufferframes"` // driver period size
			MaxQueue     int    `yaml:"maxqueue"`     // capture queue depth in buffers
		} `yaml:"capture"`

		Loopback struct {
			Enabled bool `yaml:"enabled"` // capture system audio alongside the microphone
		} `yaml:"loopback"`

		Mix struct {
			Mode       string  `yaml:"mode"`       // sum, average, or weighted
			Balance    float64 `yaml:"balance"`    // two-input balance, 0 = all mic, 1 = all loopback
			MasterGain float64 `yaml:"mastergain"` // gain applied after mixing
		} `yaml:"mix"`

		Resample struct {
			Enabled    bool `yaml:"enabled"`
			TargetRate int  `yaml:"targetrate"` // output rate in Hz
			ChunkSize  int  `yaml:"chunksize"`  // input frames per conversion step
		} `yaml:"resample"`

		Normalize struct {
			Enabled     bool    `yaml:"enabled"`
			TargetDB    float64 `yaml:"targetdb"`    // output ceiling in dBFS
			LookAheadMs int     `yaml:"lookaheadms"` // look-ahead window
		} `yaml:"normalize"`

		Silence struct {
			ThresholdDB   float64 `yaml:"thresholddb"`   // RMS level below which audio counts as silent
			MinDurationMs int     `yaml:"mindurationms"` // silence shorter than this is ignored
		} `yaml:"silence"`

		Graph struct {
			MaxQueueSize int `yaml:"maxqueuesize"` // per-node queue bound
		} `yaml:"graph"`
	} `yaml:"audio"`

	Output struct {
		Path     string `yaml:"path"`     // recording output directory
		BitDepth int    `yaml:"bitdepth"` // 16, 24, or 32
		Float    bool   `yaml:"float"`    // write IEEE float WAV instead of PCM
	} `yaml:"output"`

	Diagnostics struct {
		Enabled bool   `yaml:"enabled"`
		Listen  string `yaml:"listen"` // host:port for the diagnostics HTTP server
	} `yaml:"diagnostics"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a
// Settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

func initViper() error {
	viper.SetConfigName("taskerino")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("TASKERINO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for _, path := range configPaths() {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Missing config is fine, defaults and env apply.
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// configPaths lists the directories searched for taskerino.yaml.
func configPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "taskerino"))
	}
	paths = append(paths, "/etc/taskerino")
	return paths
}

// GetSettings returns the settings loaded by the last Load call, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath as YAML.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}
