package httpapi

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/pitchside/internal/coverage"
	"github.com/i474232898/pitchside/internal/geo"
	"github.com/i474232898/pitchside/internal/location"
	"github.com/i474232898/pitchside/internal/session"
	"github.com/i474232898/pitchside/internal/store"
	"github.com/i474232898/pitchside/internal/venue"
	"github.com/i474232898/pitchside/internal/weather"
)

var validate = validator.New()

// Dependencies are what the handlers need to create and serve sessions.
type Dependencies struct {
	Store    *store.MemoryStore
	Session  session.Deps
	Resolver *location.Resolver
	// Locator picks a location provider for sessions created without coordinates.
	// Nil means the fallback location is used.
	Locator func(c *fiber.Ctx) location.Provider
	Logger  *zap.Logger
}

type handler struct {
	Dependencies
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Resolver == nil {
		deps.Resolver = location.NewResolver(location.DefaultTimeout, location.DefaultFallback, deps.Logger)
	}
	h := &handler{deps}

	v1 := app.Group("/api/v1")
	v1.Post("/sessions", h.createSession)

	s := v1.Group("/sessions/:id")
	s.Get("/", h.getSession)
	s.Delete("/", h.deleteSession)
	s.Get("/coverage", h.coverage)
	s.Post("/search", h.search)
	s.Get("/venues", h.listVenues)
	s.Get("/venues/:placeId", h.getVenue)
	s.Get("/venues/:placeId/condition", h.condition)
	s.Get("/weather", h.weather)
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// toHTTPError maps domain errors onto status codes.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	case errors.Is(err, venue.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "venue not found")
	case errors.Is(err, weather.ErrUnavailable):
		return fiber.NewError(fiber.StatusBadGateway, "weather data unavailable")
	case errors.Is(err, session.ErrStale):
		return fiber.NewError(fiber.StatusConflict, "superseded by a newer weather request")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
}

func (h *handler) session(c *fiber.Ctx) (*session.Session, error) {
	sess, err := h.Store.Get(c.Params("id"))
	if err != nil {
		return nil, toHTTPError(err)
	}
	return sess, nil
}

// createSessionRequest carries optional client-reported coordinates.
type createSessionRequest struct {
	Lat *float64 `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng *float64 `json:"lng" validate:"omitempty,gte=-180,lte=180"`
}

func (h *handler) createSession(c *fiber.Ctx) error {
	var req createSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	if (req.Lat == nil) != (req.Lng == nil) {
		return fiber.NewError(fiber.StatusBadRequest, "lat and lng must be given together")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var provider location.Provider
	switch {
	case req.Lat != nil:
		provider = location.Static{Point: geo.Point{Lat: *req.Lat, Lng: *req.Lng}}
	case h.Locator != nil:
		provider = h.Locator(c)
	}
	origin, usedFallback := h.Resolver.Resolve(c.UserContext(), provider)

	sess := session.New(origin, h.Session)
	sess.Start(c.UserContext())
	h.Store.Save(sess)

	h.Logger.Info("session started",
		zap.String("session", sess.ID),
		zap.Stringer("origin", origin),
		zap.Bool("fallback", usedFallback))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":           sess.ID,
		"origin":       origin,
		"usedFallback": usedFallback,
		"stats":        sess.Stats(),
	})
}

func (h *handler) getSession(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"id":        sess.ID,
		"origin":    sess.Origin,
		"createdAt": sess.CreatedAt,
		"stats":     sess.Stats(),
	})
}

func (h *handler) deleteSession(c *fiber.Ctx) error {
	if err := h.Store.Delete(c.Params("id")); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// pointQuery holds a coordinate taken from query parameters.
type pointQuery struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lng float64 `validate:"gte=-180,lte=180"`
}

func (p pointQuery) point() geo.Point {
	return geo.Point{Lat: p.Lat, Lng: p.Lng}
}

// parsePointQuery reads a coordinate pair. ok is false when both are absent.
func parsePointQuery(c *fiber.Ctx, latKey, lngKey string) (q pointQuery, ok bool, err error) {
	latStr, lngStr := c.Query(latKey), c.Query(lngKey)
	if latStr == "" && lngStr == "" {
		return q, false, nil
	}
	if latStr == "" || lngStr == "" {
		return q, false, errors.New(latKey + " and " + lngKey + " must be given together")
	}
	if q.Lat, err = strconv.ParseFloat(latStr, 64); err != nil {
		return q, false, errors.New("invalid " + latKey)
	}
	if q.Lng, err = strconv.ParseFloat(lngStr, 64); err != nil {
		return q, false, errors.New("invalid " + lngKey)
	}
	if err := validate.Struct(q); err != nil {
		return q, false, err
	}
	return q, true, nil
}

// coverageQuery holds query parameters for the coverage check.
type coverageQuery struct {
	pointQuery
	Radius float64 `validate:"gt=0"`
}

func (h *handler) coverage(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	var q coverageQuery
	pt, ok, err := parsePointQuery(c, "lat", "lng")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "lat and lng query parameters are required")
	}
	q.pointQuery = pt
	if q.Radius, err = strconv.ParseFloat(c.Query("radius"), 64); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid radius")
	}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	covered := sess.IsCovered(coverage.Viewport{Center: q.point(), VisibleRadiusMeters: q.Radius})
	return c.JSON(fiber.Map{"covered": covered})
}

// searchRequest is the body of a viewport search.
type searchRequest struct {
	Lat    *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng    *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
	Radius float64  `json:"radius" validate:"omitempty,gt=0"`
}

func (h *handler) search(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	radius := req.Radius
	if radius == 0 {
		radius = session.InitialSearchRadius
	}

	added := sess.Search(geo.Point{Lat: *req.Lat, Lng: *req.Lng}, radius)
	if added == nil {
		added = []venue.Venue{}
	}
	return c.JSON(fiber.Map{
		"added":  added,
		"radius": venue.ClampRadius(radius),
		"total":  sess.Stats().Venues,
	})
}

// venuesQuery holds the list filters.
type venuesQuery struct {
	Sports []string `validate:"dive,oneof=football cricket"`
	Open   bool
	Query  string `validate:"max=100"`
}

func (h *handler) listVenues(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	q := venuesQuery{Query: strings.TrimSpace(c.Query("q"))}
	if raw := c.Query("sport"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			q.Sports = append(q.Sports, strings.ToLower(strings.TrimSpace(s)))
		}
	}
	if raw := c.Query("open"); raw != "" {
		if q.Open, err = strconv.ParseBool(raw); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid open")
		}
	}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	from, ok, err := parsePointQuery(c, "fromLat", "fromLng")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	f := venue.Filter{OpenOnly: q.Open, Query: q.Query}
	for _, s := range q.Sports {
		f.Sports = append(f.Sports, venue.Sport(s))
	}

	var list []venue.Ranked
	if ok {
		pt := from.point()
		list = sess.Venues(f, &pt)
	} else {
		list = sess.Venues(f, nil)
	}
	return c.JSON(fiber.Map{
		"venues": list,
		"count":  len(list),
	})
}

func (h *handler) getVenue(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	view, err := sess.Venue(c.UserContext(), c.Params("placeId"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(view)
}

func (h *handler) condition(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	report, err := sess.Condition(c.UserContext(), c.Params("placeId"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(report)
}

func (h *handler) weather(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	pt := sess.Origin
	q, ok, err := parsePointQuery(c, "lat", "lng")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if ok {
		pt = q.point()
	}

	view, err := sess.Weather(c.UserContext(), pt)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(view)
}
