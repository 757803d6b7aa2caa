package core

import (
	"fmt"
	"strings"
	"time"
)

type PollConfig struct {
	Interval time.Duration `koanf:"interval" mapstructure:"interval"`
	Jitter   time.Duration `koanf:"jitter" mapstructure:"jitter"`
	Timeout  time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

type StoreConfig struct {
	BusyRetryInitial  time.Duration `koanf:"busy_retry_initial" mapstructure:"busy_retry_initial"`
	BusyRetryMax      time.Duration `koanf:"busy_retry_max" mapstructure:"busy_retry_max"`
	BusyRetryAttempts int           `koanf:"busy_retry_attempts" mapstructure:"busy_retry_attempts"`
}

type Config struct {
	ServiceName string      `koanf:"service_name" mapstructure:"service_name"`
	Poll        PollConfig  `koanf:"poll" mapstructure:"poll"`
	Store       StoreConfig `koanf:"store" mapstructure:"store"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "cloudops",
		Poll: PollConfig{
			Interval: time.Second,
			Timeout:  30 * time.Minute,
		},
		Store: StoreConfig{
			BusyRetryInitial:  100 * time.Millisecond,
			BusyRetryMax:      2 * time.Second,
			BusyRetryAttempts: 5,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Poll.Interval < 0 || c.Poll.Jitter < 0 || c.Poll.Timeout < 0 {
		return fmt.Errorf("core: poll durations must not be negative")
	}
	if c.Poll.Jitter > 0 && c.Poll.Jitter >= c.Poll.Interval {
		return fmt.Errorf("core: poll jitter must be smaller than the interval")
	}
	if c.Store.BusyRetryAttempts < 0 {
		return fmt.Errorf("core: store busy_retry_attempts must not be negative")
	}
	return nil
}
