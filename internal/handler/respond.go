package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking-api/internal/query"
)

// requestTimeout bounds store and mail work done for one request.
const requestTimeout = 5 * time.Second

// envelope is the shape of every JSON response.
type envelope struct {
	Status  string `json:"status"`
	Results *int   `json:"results,omitempty"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Stack   string `json:"stack,omitempty"`
	// StackSource is "origin" when Stack was recorded where the error was
	// raised and "errorHandler" when it is the error handler's own.
	StackSource string `json:"stackSource,omitempty"`
}

func ok(c echo.Context, code int, key string, v any) error {
	return c.JSON(code, envelope{Status: "success", Data: echo.Map{key: v}})
}

func okList(c echo.Context, key string, v any, n int) error {
	return c.JSON(http.StatusOK, envelope{Status: "success", Results: &n, Data: echo.Map{key: v}})
}

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, &query.CastError{Field: "id", Value: raw}
	}
	return id, nil
}

// bindBody decodes only the JSON body into dst; path and query
// parameters never reach the DTOs.
func bindBody(c echo.Context, dst any) error {
	return (&echo.DefaultBinder{}).BindBody(c, dst)
}

// JSONSerializer is Echo's JSON codec backed by goccy/go-json.
type JSONSerializer struct{}

func (JSONSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (JSONSerializer) Deserialize(c echo.Context, i any) error {
	err := json.NewDecoder(c.Request().Body).Decode(i)
	if err == nil {
		return nil
	}
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) && ute.Field != "" {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid %s: expected %s", ute.Field, ute.Type)).SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON body").SetInternal(err)
}
