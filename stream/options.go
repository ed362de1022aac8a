package stream

import "go.uber.org/zap"

const defaultChunkSize = 32 * 1024

type config struct {
	chunkSize int
	log       *zap.Logger
}

// Option configures sources, sinks and Pump.
type Option func(*config)

// WithChunkSize sets the size of reads from the underlying reader.
func WithChunkSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithLogger sets the logger used for debug events. The default discards.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

func newConfig(opts []Option) config {
	c := config{chunkSize: defaultChunkSize, log: zap.NewNop()}
	for _, o := range opts {
		o(&c)
	}
	return c
}
