package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking-api/internal/middleware"
	"github.com/iliyamo/tour-booking-api/internal/model"
	"github.com/iliyamo/tour-booking-api/internal/query"
	"github.com/iliyamo/tour-booking-api/internal/repository"
)

var ReviewResource = Resource{Singular: "review", Plural: "reviews", Schema: repository.ReviewSchema}

// ReviewsOfTour limits a review list to the :tourId of a nested route.
// On /reviews it does nothing.
func ReviewsOfTour(c echo.Context, q *query.Query) error {
	if c.Param("tourId") == "" {
		return nil
	}
	id, err := parseID(c, "tourId")
	if err != nil {
		return err
	}
	return q.Where("tour", query.OpEq, strconv.FormatUint(id, 10))
}

// SetTourUser fills the review's tour from the nested route when the body
// leaves it out, and its author from the session.
func SetTourUser(c echo.Context, in *model.ReviewInput) error {
	if in.Tour == 0 && c.Param("tourId") != "" {
		id, err := parseID(c, "tourId")
		if err != nil {
			return err
		}
		in.Tour = id
	}
	if u := middleware.CurrentUser(c); u != nil {
		in.User = u.ID
	}
	return nil
}
