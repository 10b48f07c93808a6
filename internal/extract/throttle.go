package extract

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttled limits how often metadata is requested from the upstream site.
// Transfers are not throttled.
type Throttled struct {
	Client
	limiter *rate.Limiter
}

// NewThrottled allows perSecond metadata lookups with the given burst
func NewThrottled(c Client, perSecond float64, burst int) *Throttled {
	if burst < 1 {
		burst = 1
	}
	return &Throttled{Client: c, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// FetchMetadata waits for a limiter token before delegating
func (t *Throttled) FetchMetadata(ctx context.Context, url string) (Metadata, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return Metadata{}, err
	}
	return t.Client.FetchMetadata(ctx, url)
}
