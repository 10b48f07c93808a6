package extract

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Extractor kinds
const (
	KindYtDlp  = "ytdlp"
	KindNative = "native"
)

// Options selects and decorates a client
type Options struct {
	Kind   string
	Format string
	// CacheSize enables the metadata cache when > 0
	CacheSize int
	// RatePerSecond enables metadata throttling when > 0
	RatePerSecond float64
}

// New builds the configured client. The cache wraps the throttle so cached
// lookups never wait for a token.
func New(opts Options, logger logrus.FieldLogger) (Client, error) {
	var c Client
	switch opts.Kind {
	case "", KindYtDlp:
		c = NewYtDlp(opts.Format, logger)
	case KindNative:
		c = NewNative(logger)
	default:
		return nil, fmt.Errorf("unknown extractor %q", opts.Kind)
	}

	if opts.RatePerSecond > 0 {
		c = NewThrottled(c, opts.RatePerSecond, 1)
	}
	if opts.CacheSize > 0 {
		cached, err := NewCached(c, opts.CacheSize)
		if err != nil {
			return nil, err
		}
		c = cached
	}
	return c, nil
}
