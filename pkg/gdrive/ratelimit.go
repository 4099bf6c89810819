package gdrive

import (
	"net/http"

	"golang.org/x/time/rate"
)

// rateLimitedTransport waits for the limiter before every request
type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// withRateLimit returns a shallow copy of client whose transport is paced by limiter
func withRateLimit(client *http.Client, limiter *rate.Limiter) *http.Client {
	if limiter == nil {
		return client
	}

	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	limited := *client
	limited.Transport = &rateLimitedTransport{base: base, limiter: limiter}
	return &limited
}
