// Package location resolves the session's starting point.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/pitchside/internal/geo"
)

// DefaultTimeout bounds how long a Resolver waits for its provider.
const DefaultTimeout = 10 * time.Second

// DefaultFallback is used when no location can be determined (Mile End, London).
var DefaultFallback = geo.Point{Lat: 51.52, Lng: -0.04}

// ErrDenied is returned by providers that have no location to give.
var ErrDenied = errors.New("location unavailable")

// Provider determines a position.
type Provider interface {
	Locate(ctx context.Context) (geo.Point, error)
}

// Resolver wraps a Provider with a bounded wait and a fixed fallback. It never fails.
type Resolver struct {
	timeout  time.Duration
	fallback geo.Point
	logger   *zap.Logger
}

func NewResolver(timeout time.Duration, fallback geo.Point, logger *zap.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{timeout: timeout, fallback: fallback, logger: logger}
}

// Resolve asks p for a position, returning the fallback on error, timeout or an
// invalid coordinate. The second result reports whether the fallback was used.
func (r *Resolver) Resolve(ctx context.Context, p Provider) (geo.Point, bool) {
	if p == nil {
		return r.fallback, true
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type result struct {
		point geo.Point
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		pt, err := p.Locate(ctx)
		ch <- result{pt, err}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("location lookup timed out, using fallback", zap.Duration("timeout", r.timeout))
		return r.fallback, true
	case res := <-ch:
		if res.err != nil {
			r.logger.Info("location lookup failed, using fallback", zap.Error(res.err))
			return r.fallback, true
		}
		if !res.point.Valid() {
			r.logger.Warn("location provider returned an invalid point", zap.Stringer("point", res.point))
			return r.fallback, true
		}
		return res.point, false
	}
}

// Static returns a fixed, client-reported position.
type Static struct {
	Point geo.Point
}

func (s Static) Locate(context.Context) (geo.Point, error) {
	return s.Point, nil
}

// IPLookup geolocates an IP address with an ip-api.com style JSON endpoint.
// URL may contain "{ip}"; otherwise the address is appended as a path segment.
type IPLookup struct {
	Client *http.Client
	URL    string
	IP     string
}

type ipLookupPayload struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (l IPLookup) Locate(ctx context.Context) (geo.Point, error) {
	if l.URL == "" {
		return geo.Point{}, ErrDenied
	}
	ip := net.ParseIP(l.IP)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return geo.Point{}, fmt.Errorf("%w: %q is not a public address", ErrDenied, l.IP)
	}

	target := l.URL
	if strings.Contains(target, "{ip}") {
		target = strings.ReplaceAll(target, "{ip}", ip.String())
	} else {
		target = strings.TrimRight(target, "/") + "/" + ip.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return geo.Point{}, err
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return geo.Point{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return geo.Point{}, fmt.Errorf("ip lookup: unexpected status %d", resp.StatusCode)
	}

	var payload ipLookupPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return geo.Point{}, fmt.Errorf("decode ip lookup: %w", err)
	}
	if payload.Status != "" && payload.Status != "success" {
		return geo.Point{}, fmt.Errorf("%w: %s", ErrDenied, payload.Message)
	}
	return geo.Point{Lat: payload.Lat, Lng: payload.Lon}, nil
}
