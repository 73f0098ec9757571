package providers

import (
	"context"
	"errors"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/pitchside/internal/geo"
)

var errNoAddress = errors.New("no address for point")

// keyOnce guards the package-level key the geocoder library reads.
var keyOnce sync.Once

// GeocoderResolver implements weather.NameResolver with Google reverse geocoding.
type GeocoderResolver struct {
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

func NewGeocoderResolver(apiKey string) *GeocoderResolver {
	keyOnce.Do(func() { geocoder.ApiKey = apiKey })
	return &GeocoderResolver{reverse: geocoder.GeocodingReverse}
}

// ResolveName returns the locality for p, falling back to the formatted address.
func (r *GeocoderResolver) ResolveName(ctx context.Context, p geo.Point) (string, error) {
	type result struct {
		name string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		addrs, err := r.reverse(geocoder.Location{Latitude: p.Lat, Longitude: p.Lng})
		if err != nil {
			ch <- result{err: err}
			return
		}
		for _, a := range addrs {
			if a.City != "" {
				ch <- result{name: a.City}
				return
			}
		}
		if len(addrs) > 0 && addrs[0].FormattedAddress != "" {
			ch <- result{name: addrs[0].FormattedAddress}
			return
		}
		ch <- result{err: errNoAddress}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.name, res.err
	}
}
