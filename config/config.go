package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			PendingDir:   DefaultPendingDir,
			ProcessedDir: DefaultProcessedDir,
			BlocksDir:    DefaultBlocksDir,
		},
		Log: LogConfig{
			Dir:        DefaultLogDir,
			File:       DefaultLogFile,
			MaxSizeMB:  DefaultMaxSizeMB,
			MaxAgeDays: DefaultMaxAgeDays,
		},
	}
}

// LoadConfig reads a .yml/.yaml or .ini config file. Fields the file leaves out keep
// their defaults.
func LoadConfig(path string) (*Config, error) {
	log.Printf("[config] LoadConfig called with path: %s", path)

	var (
		cfg *Config
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yml", ".yaml":
		cfg, err = loadYAML(path)
	case ".ini":
		cfg, err = loadINI(path)
	default:
		return nil, fmt.Errorf("unsupported config file extension %q", ext)
	}
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	log.Printf("[config] Successfully loaded config: Store=%+v, Index=%q, Metrics=%q", cfg.Store, cfg.Index.Dir, cfg.Metrics.ListenAddr)
	return cfg, nil
}

func loadYAML(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		log.Printf("[config] Failed to open file: %v", err)
		return nil, err
	}
	defer file.Close()

	var cfgFile ConfigFile
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfgFile); err != nil {
		log.Printf("[config] Failed to decode YAML: %v", err)
		return nil, err
	}
	return &cfgFile.Config, nil
}

func loadINI(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	sections := []struct {
		name string
		dst  interface{}
	}{
		{sectionStore, &cfg.Store},
		{sectionLog, &cfg.Log},
		{sectionMetrics, &cfg.Metrics},
		{sectionIndex, &cfg.Index},
	}
	for _, s := range sections {
		if !file.HasSection(s.name) {
			continue
		}
		if err := file.Section(s.name).MapTo(s.dst); err != nil {
			return nil, fmt.Errorf("section [%s]: %w", s.name, err)
		}
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Store.PendingDir == "" {
		c.Store.PendingDir = def.Store.PendingDir
	}
	if c.Store.ProcessedDir == "" {
		c.Store.ProcessedDir = def.Store.ProcessedDir
	}
	if c.Store.BlocksDir == "" {
		c.Store.BlocksDir = def.Store.BlocksDir
	}
	if c.Log.Dir == "" {
		c.Log.Dir = def.Log.Dir
	}
	if c.Log.File == "" {
		c.Log.File = def.Log.File
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = def.Log.MaxSizeMB
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = def.Log.MaxAgeDays
	}
}

// Validate checks that the three store locations are set and distinct.
func (c *Config) Validate() error {
	return c.Store.Validate()
}

func (sc StoreConfig) Validate() error {
	dirs := map[string]string{
		"pending_dir":   sc.PendingDir,
		"processed_dir": sc.ProcessedDir,
		"blocks_dir":    sc.BlocksDir,
	}
	seen := make(map[string]string, len(dirs))
	for _, name := range []string{"pending_dir", "processed_dir", "blocks_dir"} {
		dir := dirs[name]
		if dir == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
		clean := filepath.Clean(dir)
		if other, ok := seen[clean]; ok {
			return fmt.Errorf("%s and %s point to the same location %s", other, name, clean)
		}
		seen[clean] = name
	}
	return nil
}

// Resolve returns a copy with relative locations joined onto root.
func (sc StoreConfig) Resolve(root string) StoreConfig {
	if root == "" {
		return sc
	}
	join := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(root, p)
	}
	return StoreConfig{
		PendingDir:   join(sc.PendingDir),
		ProcessedDir: join(sc.ProcessedDir),
		BlocksDir:    join(sc.BlocksDir),
	}
}

// WriteConfig writes cfg to path in the format its extension names.
func WriteConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yml", ".yaml":
		data, err := yaml.Marshal(&ConfigFile{Config: *cfg})
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0o644)
	case ".ini":
		file := ini.Empty()
		sections := []struct {
			name string
			src  interface{}
		}{
			{sectionStore, &cfg.Store},
			{sectionLog, &cfg.Log},
			{sectionMetrics, &cfg.Metrics},
			{sectionIndex, &cfg.Index},
		}
		for _, s := range sections {
			if err := file.Section(s.name).ReflectFrom(s.src); err != nil {
				return fmt.Errorf("section [%s]: %w", s.name, err)
			}
		}
		return file.SaveTo(path)
	default:
		return fmt.Errorf("unsupported config file extension %q", ext)
	}
}
