package redis

import "time"

// Config configures the BullMQ-on-Redis adapter.
type Config struct {
	// Prefix is the broker key prefix BullMQ was configured with.
	Prefix string `env:"BROKER_PREFIX" env-default:"bull"`

	// MetricsSampleN bounds how many of the most recent completed/failed
	// members Metrics inspects per queue. This is a sampling horizon,
	// not a page size: widen it for tighter accuracy.
	MetricsSampleN int64 `env:"BROKER_METRICS_SAMPLE_N" env-default:"100"`

	// ConnectTimeout bounds how long Connect waits for the first of
	// {ready, error} on the command connection.
	ConnectTimeout time.Duration `env:"BROKER_CONNECT_TIMEOUT" env-default:"10s"`
}

func (c Config) withDefaults() Config {
	if c.Prefix == "" {
		c.Prefix = "bull"
	}
	if c.MetricsSampleN <= 0 {
		c.MetricsSampleN = 100
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	return c
}
