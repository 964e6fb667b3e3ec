package handler

// factory.go builds the five generic resource handlers (list, get-one,
// create, update, delete) from plain service methods, so each resource
// only declares its schema and names.

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking-api/internal/apperr"
	"github.com/iliyamo/tour-booking-api/internal/query"
	"github.com/iliyamo/tour-booking-api/internal/repository"
)

// Resource names a resource for envelopes and not-found messages.
type Resource struct {
	Singular string // "tour": data key of one document
	Plural   string // "tours": data key of a list
	Schema   *query.Schema
}

func (r Resource) notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Newf(http.StatusNotFound, "No %s found with that ID", r.Singular)
	}
	return err
}

// Scope narrows a parsed list query, e.g. to the tour of a nested route.
type Scope func(c echo.Context, q *query.Query) error

// Prepare adjusts a decoded create body before it reaches the service.
type Prepare[In any] func(c echo.Context, in *In) error

func GetAll[T any](r Resource, list func(context.Context, *query.Query) ([]T, int64, error), scopes ...Scope) echo.HandlerFunc {
	return func(c echo.Context) error {
		q, err := query.Parse(r.Schema, c.QueryParams())
		if err != nil {
			return err
		}
		for _, scope := range scopes {
			if err := scope(c, q); err != nil {
				return err
			}
		}
		ctx, cancel := withTimeout(c)
		defer cancel()
		items, total, err := list(ctx, q)
		if err != nil {
			return err
		}
		if err := q.CheckPage(total); err != nil {
			return err
		}
		docs, err := query.Project(items, q.Fields)
		if err != nil {
			return err
		}
		return okList(c, r.Plural, docs, len(items))
	}
}

func GetOne[T any](r Resource, get func(context.Context, uint64) (T, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c, "id")
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout(c)
		defer cancel()
		doc, err := get(ctx, id)
		if err != nil {
			return r.notFound(err)
		}
		return ok(c, http.StatusOK, r.Singular, doc)
	}
}

func CreateOne[T, In any](r Resource, create func(context.Context, In) (T, error), prepare ...Prepare[In]) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in In
		if err := bindBody(c, &in); err != nil {
			return err
		}
		for _, p := range prepare {
			if err := p(c, &in); err != nil {
				return err
			}
		}
		ctx, cancel := withTimeout(c)
		defer cancel()
		doc, err := create(ctx, in)
		if err != nil {
			return err
		}
		return ok(c, http.StatusCreated, r.Singular, doc)
	}
}

func UpdateOne[T, P any](r Resource, update func(context.Context, uint64, P) (T, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c, "id")
		if err != nil {
			return err
		}
		var patch P
		if err := bindBody(c, &patch); err != nil {
			return err
		}
		ctx, cancel := withTimeout(c)
		defer cancel()
		doc, err := update(ctx, id, patch)
		if err != nil {
			return r.notFound(err)
		}
		return ok(c, http.StatusOK, r.Singular, doc)
	}
}

func DeleteOne(r Resource, del func(context.Context, uint64) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c, "id")
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout(c)
		defer cancel()
		if err := del(ctx, id); err != nil {
			return r.notFound(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
