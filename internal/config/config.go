package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models ~/.pt/config.yml.
type Config struct {
	TaskFile  string `yaml:"task_file"`
	AlarmFile string `yaml:"alarm_file"`
}

// Default returns the built-in paths under the user's home directory,
// the same ones prior versions hard-coded.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return &Config{
		TaskFile:  filepath.Join(home, ".pt", "tasks.json"),
		AlarmFile: filepath.Join(home, ".pt", "alarm.mp3"),
	}, nil
}

// Path returns the default config file location.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".pt", "config.yml"), nil
}

// Validate ensures both paths are set.
func (c *Config) Validate() error {
	if c.TaskFile == "" {
		return fmt.Errorf("config.task_file is required")
	}
	if c.AlarmFile == "" {
		return fmt.Errorf("config.alarm_file is required")
	}
	return nil
}

// FromYAML parses config from raw YAML bytes. Missing keys stay empty;
// Resolve fills them from the defaults.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	return &cfg, nil
}

// Load reads config from path, failing if the file is missing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return FromYAML(data)
}

// LoadOptional returns nil, nil if the config file does not exist.
func LoadOptional(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Resolve layers the config file and explicit overrides on top of the
// defaults. An explicitly named config file must exist; the default
// location is optional. Empty overrides leave the lower layer in place.
func Resolve(path, taskFile, alarmFile string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	var fileCfg *Config
	if path != "" {
		fileCfg, err = Load(path)
	} else {
		defPath, perr := Path()
		if perr != nil {
			return nil, perr
		}
		fileCfg, err = LoadOptional(defPath)
	}
	if err != nil {
		return nil, err
	}
	if fileCfg != nil {
		if fileCfg.TaskFile != "" {
			cfg.TaskFile = fileCfg.TaskFile
		}
		if fileCfg.AlarmFile != "" {
			cfg.AlarmFile = fileCfg.AlarmFile
		}
	}
	if taskFile != "" {
		cfg.TaskFile = taskFile
	}
	if alarmFile != "" {
		cfg.AlarmFile = alarmFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
