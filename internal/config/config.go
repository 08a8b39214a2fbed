// Package config is used to load the configuration file
package config

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/kiwibrowser/android-sub011/internal/utils"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	// DefaultWindow is the chunk size used when enumerating references in
	// windows. Zero means a single window over the whole image.
	DefaultWindow = 0
	// MaxWorkers caps refs.workers.
	MaxWorkers = 256
)

type refs struct {
	Window  uint32 `json:"window" mapstructure:"window"`
	Workers int    `json:"workers" mapstructure:"workers"`
}

type patch struct {
	FixChecksum bool `json:"fix_checksum" mapstructure:"fix_checksum"`
}

// Config is the configuration struct
type Config struct {
	Refs  refs  `json:"refs" mapstructure:"refs"`
	Patch patch `json:"patch" mapstructure:"patch"`
}

// SetDefaults registers the default configuration values with viper.
func SetDefaults() {
	viper.SetDefault("refs.window", DefaultWindow)
	viper.SetDefault("refs.workers", runtime.NumCPU())
	viper.SetDefault("patch.fix_checksum", true)
}

func (c *Config) verify() error {
	if c.Refs.Workers == 0 {
		c.Refs.Workers = runtime.NumCPU()
	} else if c.Refs.Workers < 0 {
		return fmt.Errorf("config: refs.workers must be positive (got %d)", c.Refs.Workers)
	} else if c.Refs.Workers > MaxWorkers {
		return fmt.Errorf("config: refs.workers must be at most %d (got %d)", MaxWorkers, c.Refs.Workers)
	}
	if c.Refs.Window != 0 && c.Refs.Window < 4 {
		return fmt.Errorf("config: refs.window must be 0 or at least 4 bytes (got %d)", c.Refs.Window)
	}

	return nil
}

// offsetHook decodes strings such as "0x1000" into unsigned fields so that
// sizes can be written in hex in the config file and environment.
func offsetHook(f reflect.Type, t reflect.Type, data any) (any, error) {
	if f.Kind() != reflect.String {
		return data, nil
	}
	s := strings.TrimSpace(reflect.ValueOf(data).String())
	switch t.Kind() {
	case reflect.Uint32:
		return utils.ConvertStrToUint32(s)
	case reflect.Int:
		return cast.ToIntE(s)
	}
	return data, nil
}

// LoadConfig loads the configuration file
func LoadConfig() (*Config, error) {
	var c *Config

	if err := viper.Unmarshal(&c, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		offsetHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %v", err)
	}
	if c == nil {
		c = &Config{}
	}

	if err := c.verify(); err != nil {
		return nil, fmt.Errorf("config: failed to verify: %v", err)
	}

	return c, nil
}
