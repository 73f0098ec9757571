package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"googlemaps.github.io/maps"

	"github.com/i474232898/pitchside/internal/geo"
	"github.com/i474232898/pitchside/internal/venue"
)

const (
	photoEndpoint = "https://maps.googleapis.com/maps/api/place/photo"

	listPhotoWidth   = 400
	detailPhotoWidth = 800
	maxDetailPhotos  = 5
)

var errCircuitOpen = errors.New("circuit breaker open")

// PlacesAPI is the subset of *maps.Client used by GooglePlaces.
type PlacesAPI interface {
	NearbySearch(ctx context.Context, r *maps.NearbySearchRequest) (maps.PlacesSearchResponse, error)
	PlaceDetails(ctx context.Context, r *maps.PlaceDetailsRequest) (maps.PlaceDetailsResult, error)
}

// GooglePlaces implements venue.SearchProvider on the Google Places web service.
type GooglePlaces struct {
	api     PlacesAPI
	apiKey  string
	circuit *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewGooglePlaces builds a provider backed by a maps client using httpClient.
func NewGooglePlaces(apiKey string, httpClient *http.Client, logger *zap.Logger) (*GooglePlaces, error) {
	opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, maps.WithHTTPClient(httpClient))
	}
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return NewGooglePlacesWithAPI(client, apiKey, logger), nil
}

// NewGooglePlacesWithAPI wraps an existing PlacesAPI.
func NewGooglePlacesWithAPI(api PlacesAPI, apiKey string, logger *zap.Logger) *GooglePlaces {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "googleplaces",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				zap.String("upstream", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &GooglePlaces{api: api, apiKey: apiKey, circuit: cb, logger: logger}
}

func (g *GooglePlaces) execute(fn func() (interface{}, error)) (interface{}, error) {
	res, err := g.circuit.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
	}
	return res, err
}

// SearchNearby runs one keyword nearby search. Only the first result page is used.
func (g *GooglePlaces) SearchNearby(ctx context.Context, center geo.Point, radiusMeters int, keyword string) ([]venue.RawHit, error) {
	req := &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: center.Lat, Lng: center.Lng},
		Radius:   uint(radiusMeters),
		Keyword:  keyword,
	}

	res, err := g.execute(func() (interface{}, error) {
		return g.api.NearbySearch(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("nearby search %q: %w", keyword, err)
	}
	resp := res.(maps.PlacesSearchResponse)

	hits := make([]venue.RawHit, 0, len(resp.Results))
	for _, r := range resp.Results {
		h := venue.RawHit{
			PlaceID:  r.PlaceID,
			Name:     r.Name,
			Location: geo.Point{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
			Address:  r.Vicinity,
			Types:    r.Types,
		}
		if r.Rating > 0 {
			rating := float64(r.Rating)
			h.Rating = &rating
		}
		if r.OpeningHours != nil && r.OpeningHours.OpenNow != nil {
			open := *r.OpeningHours.OpenNow
			h.OpenNow = &open
		}
		if len(r.Photos) > 0 {
			h.PhotoURL = g.PhotoURL(r.Photos[0].PhotoReference, listPhotoWidth)
		}
		hits = append(hits, h)
	}
	return hits, nil
}

var fieldMasks = map[venue.DetailField]maps.PlaceDetailsFieldMask{
	venue.FieldOpeningHours: maps.PlaceDetailsFieldMaskOpeningHours,
	venue.FieldWebsite:      maps.PlaceDetailsFieldMaskWebsite,
	venue.FieldPhone:        maps.PlaceDetailsFieldMaskFormattedPhoneNumber,
	venue.FieldURL:          maps.PlaceDetailsFieldMaskURL,
	venue.FieldPhotos:       maps.PlaceDetailsFieldMaskPhotos,
}

// Details looks up one place, requesting only the given fields.
func (g *GooglePlaces) Details(ctx context.Context, placeID string, fields []venue.DetailField) (*venue.Details, error) {
	req := &maps.PlaceDetailsRequest{PlaceID: placeID}
	for _, f := range fields {
		if m, ok := fieldMasks[f]; ok {
			req.Fields = append(req.Fields, m)
		}
	}

	res, err := g.execute(func() (interface{}, error) {
		return g.api.PlaceDetails(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("place details %s: %w", placeID, err)
	}
	place := res.(maps.PlaceDetailsResult)

	d := &venue.Details{
		Website:     place.Website,
		Phone:       place.FormattedPhoneNumber,
		MapsURL:     place.URL,
		WeekdayText: []string{},
		Periods:     []venue.Period{},
		PhotoURLs:   []string{},
	}
	if oh := place.OpeningHours; oh != nil {
		if oh.OpenNow != nil {
			open := *oh.OpenNow
			d.IsOpen = &open
		}
		if oh.WeekdayText != nil {
			d.WeekdayText = oh.WeekdayText
		}
		d.Periods = toPeriods(oh.Periods)
	}
	for i, p := range place.Photos {
		if i == maxDetailPhotos {
			break
		}
		d.PhotoURLs = append(d.PhotoURLs, g.PhotoURL(p.PhotoReference, detailPhotoWidth))
	}
	return d, nil
}

// PhotoURL builds the Place Photo URL for a photo reference.
func (g *GooglePlaces) PhotoURL(reference string, maxWidth int) string {
	if reference == "" {
		return ""
	}
	values := url.Values{}
	values.Set("maxwidth", strconv.Itoa(maxWidth))
	values.Set("photo_reference", reference)
	values.Set("key", g.apiKey)
	return photoEndpoint + "?" + values.Encode()
}

func toPeriods(in []maps.OpeningHoursPeriod) []venue.Period {
	out := make([]venue.Period, 0, len(in))
	for _, p := range in {
		open, ok := parseDayTime(p.Open)
		if !ok {
			continue
		}
		period := venue.Period{Open: open}
		if c, ok := parseDayTime(p.Close); ok {
			period.Close = &c
		}
		out = append(out, period)
	}
	return out
}

// parseDayTime reads the "hhmm" time Google returns. An empty time means absent.
func parseDayTime(oc maps.OpeningHoursOpenClose) (venue.DayTime, bool) {
	if len(oc.Time) != 4 {
		return venue.DayTime{}, false
	}
	hh, err1 := strconv.Atoi(oc.Time[:2])
	mm, err2 := strconv.Atoi(oc.Time[2:])
	if err1 != nil || err2 != nil {
		return venue.DayTime{}, false
	}
	return venue.DayTime{Day: oc.Day, Hour: hh, Minute: mm}, true
}
