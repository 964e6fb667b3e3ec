package handler

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking-api/internal/apperr"
	"github.com/iliyamo/tour-booking-api/internal/query"
	"github.com/iliyamo/tour-booking-api/internal/repository"
	"github.com/iliyamo/tour-booking-api/internal/service"
)

var TourResource = Resource{Singular: "tour", Plural: "tours", Schema: repository.TourSchema}

// MsgBadLatLng is returned when a geo route's latlng segment is malformed.
const MsgBadLatLng = "Please provide latitude and longitude in the format lat,lng."

// TourHandler serves the tour reports and geo lookups. Plain CRUD is
// built from the factory in the router.
type TourHandler struct {
	Tours *service.TourService
}

func NewTourHandler(tours *service.TourService) *TourHandler {
	return &TourHandler{Tours: tours}
}

// AliasTopTours presets the query of /top-5-cheap: the five best rated
// tours, cheapest first on ties.
func AliasTopTours(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()
		q := url.Values{}
		q.Set("limit", "5")
		q.Set("sort", "-ratingsAverage,price")
		q.Set("fields", "name,price,ratingsAverage,summary,difficulty")
		r.URL.RawQuery = q.Encode()
		return next(c)
	}
}

// Stats handles GET /api/v1/tours/tour-stats.
func (h *TourHandler) Stats(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	stats, err := h.Tours.Stats(ctx)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "stats", stats)
}

// MonthlyPlan handles GET /api/v1/tours/monthly-plan/:year.
func (h *TourHandler) MonthlyPlan(c echo.Context) error {
	raw := c.Param("year")
	year, err := strconv.Atoi(raw)
	if err != nil {
		return &query.CastError{Field: "year", Value: raw}
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	plan, err := h.Tours.MonthlyPlan(ctx, year)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "plan", plan)
}

// Within handles GET /api/v1/tours/tours-within/:distance/center/:latlng/unit/:unit.
func (h *TourHandler) Within(c echo.Context) error {
	raw := c.Param("distance")
	distance, err := parseFinite(raw)
	if err != nil {
		return &query.CastError{Field: "distance", Value: raw}
	}
	lat, lng, err := parseLatLng(c.Param("latlng"))
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	tours, err := h.Tours.Within(ctx, distance, lat, lng, c.Param("unit"))
	if err != nil {
		return err
	}
	return okList(c, "data", tours, len(tours))
}

// Distances handles GET /api/v1/tours/distances/:latlng/unit/:unit.
func (h *TourHandler) Distances(c echo.Context) error {
	lat, lng, err := parseLatLng(c.Param("latlng"))
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	dists, err := h.Tours.Distances(ctx, lat, lng, c.Param("unit"))
	if err != nil {
		return err
	}
	return okList(c, "data", dists, len(dists))
}

func parseLatLng(raw string) (float64, float64, error) {
	latS, lngS, found := strings.Cut(raw, ",")
	if !found {
		return 0, 0, apperr.BadRequest(MsgBadLatLng)
	}
	lat, err1 := parseFinite(strings.TrimSpace(latS))
	lng, err2 := parseFinite(strings.TrimSpace(lngS))
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, apperr.BadRequest(MsgBadLatLng)
	}
	return lat, lng, nil
}

// parseFinite is strconv.ParseFloat without NaN and the infinities.
func parseFinite(raw string) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrSyntax
	}
	return f, nil
}
