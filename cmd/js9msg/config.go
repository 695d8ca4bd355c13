package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gojs9/gojs9/internal/files"
)

// Config supplies defaults for flags left unset on the command line.
type Config struct {
	Host      string `yaml:"host"`
	Display   string `yaml:"display"`
	Transport string `yaml:"transport"`
	Timeout   string `yaml:"timeout"`
}

// defaultConfigPath prefers a js9msg.yaml in the working directory or any
// parent, then falls back to ~/.config/js9msg.yaml.
func defaultConfigPath() string {
	if wd, err := os.Getwd(); err == nil {
		if path := files.FindUp("js9msg.yaml", wd); path != "" {
			return path
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "js9msg.yaml")
	}
	return filepath.Join(home, ".config", "js9msg.yaml")
}

// loadConfig reads the configuration from the given YAML file path. A
// missing file is not an error, it just supplies nothing.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
