package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"annotext/internal/blockid"
	"annotext/internal/lifecycle"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Project struct {
		Root string `yaml:"root"`
	} `yaml:"project"`
	Dictionary struct {
		Path string `yaml:"path"`
		// FoldCase matches terms regardless of case. Without it, each
		// spelling listed in the dictionary matches exactly as written.
		FoldCase bool `yaml:"fold_case"`
	} `yaml:"dictionary"`
	Tracking struct {
		Namespaces     []lifecycle.Namespace `yaml:"namespaces"`
		DedupePerCycle bool                  `yaml:"dedupe_per_cycle"`
	} `yaml:"tracking"`
	Blocks struct {
		Attribute  string `yaml:"attribute"`
		Prefix     string `yaml:"prefix"`
		AutoAssign bool   `yaml:"auto_assign"`
	} `yaml:"blocks"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Project.Root = "."
	cfg.Dictionary.Path = "dictionary.yaml"
	cfg.Tracking.Namespaces = lifecycle.DefaultNamespaces()
	cfg.Blocks.Attribute = blockid.DefaultAttribute
	cfg.Blocks.Prefix = blockid.DefaultPrefix
	cfg.Blocks.AutoAssign = true
	cfg.Storage.Path = "annotext.db"
	return &cfg
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	// 2. Load YAML config over the defaults
	cfg := Default()
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	// 3. Override with Environment Variables if present
	if dict := os.Getenv("ANNOTEXT_DICTIONARY"); dict != "" {
		cfg.Dictionary.Path = dict
	}
	if db := os.Getenv("ANNOTEXT_DB"); db != "" {
		cfg.Storage.Path = db
	}
	if prefix := os.Getenv("ANNOTEXT_BLOCK_PREFIX"); prefix != "" {
		cfg.Blocks.Prefix = prefix
	}

	if len(cfg.Tracking.Namespaces) == 0 {
		cfg.Tracking.Namespaces = lifecycle.DefaultNamespaces()
	}
	if cfg.Blocks.Attribute == "" {
		cfg.Blocks.Attribute = blockid.DefaultAttribute
	}

	return cfg, nil
}
