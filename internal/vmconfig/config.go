// Package vmconfig holds the interpreter's optional on-disk configuration:
// memory size and I/O buffering, read from an .rvmrc.toml file if present.
package vmconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// fileName is the config file's name, resolved relative to the current
// working directory. spec.md's Non-goals say nothing about configuration,
// so this is new ambient surface: it is off by default, and its absence is
// not an error.
const fileName = ".rvmrc.toml"

// Config controls the interpreter's resource sizing.
type Config struct {
	Memory struct {
		Bytes int `toml:"bytes"`
	} `toml:"memory"`

	IO struct {
		BufferSize int `toml:"buffer_size"`
	} `toml:"io"`
}

// Default returns the configuration used when no .rvmrc.toml is found.
func Default() Config {
	cfg := Config{}
	cfg.Memory.Bytes = 10 * 1024 * 1024
	cfg.IO.BufferSize = 4096
	return cfg
}

// Load reads .rvmrc.toml from dir. A missing file is not an error: Load
// returns Default() unchanged. A malformed file is.
func Load(dir string) (Config, error) {
	cfg := Default()

	path := filepath.Join(dir, fileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("vmconfig: reading %s: %w", path, err)
	}
	return cfg, nil
}
