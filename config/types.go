package config

// StoreConfig names the three store locations. Relative paths are resolved against
// the data directory.
type StoreConfig struct {
	PendingDir   string `yaml:"pending_dir" ini:"pending_dir"`
	ProcessedDir string `yaml:"processed_dir" ini:"processed_dir"`
	BlocksDir    string `yaml:"blocks_dir" ini:"blocks_dir"`
}

// LogConfig configures the rotating log file.
type LogConfig struct {
	Dir        string `yaml:"dir" ini:"dir"`
	File       string `yaml:"file" ini:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" ini:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days" ini:"max_age_days"`
	Stdout     bool   `yaml:"stdout" ini:"stdout"`
}

// MetricsConfig enables the prometheus endpoint when ListenAddr is set.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr" ini:"listen_addr"`
}

// IndexConfig enables the LevelDB height index when Dir is set.
type IndexConfig struct {
	Dir string `yaml:"dir" ini:"dir"`
}

// Config is everything the producer and CLI need.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Index   IndexConfig   `yaml:"index"`
}

// ConfigFile is the top-level structure of the yaml config file
type ConfigFile struct {
	Config Config `yaml:"config"`
}
