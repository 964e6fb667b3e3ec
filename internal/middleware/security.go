package middleware

import (
	"bytes"
	"html"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking-api/internal/apperr"
)

// HPPWhitelist lists the query parameters that may legitimately repeat.
var HPPWhitelist = []string{"duration", "ratingsQuantity", "ratingsAverage", "maxGroupSize", "difficulty", "price"}

// ParameterPollution collapses repeated query parameters to their last
// value, except for the whitelisted fields (matched with or without an
// operator suffix such as "price[lt]"). It must run before anything reads
// the query string.
func ParameterPollution(whitelist ...string) echo.MiddlewareFunc {
	keep := make(map[string]bool, len(whitelist))
	for _, w := range whitelist {
		keep[w] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			if r.URL.RawQuery == "" {
				return next(c)
			}
			q := r.URL.Query()
			changed := false
			for k, vs := range q {
				name := k
				if i := strings.IndexByte(k, '['); i > 0 {
					name = k[:i]
				}
				if len(vs) > 1 && !keep[name] {
					q[k] = vs[len(vs)-1:]
					changed = true
				}
			}
			if changed {
				r.URL.RawQuery = q.Encode()
			}
			return next(c)
		}
	}
}

// Sanitize rewrites JSON request bodies: string values are HTML-escaped
// and object keys starting with "$" are dropped, at any depth.
func Sanitize() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			if r.Body == nil || !strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
				return next(c)
			}
			raw, err := io.ReadAll(r.Body)
			_ = r.Body.Close()
			if err != nil {
				return err
			}
			out := raw
			if len(bytes.TrimSpace(raw)) > 0 {
				var doc any
				dec := json.NewDecoder(bytes.NewReader(raw))
				dec.UseNumber()
				if err := dec.Decode(&doc); err != nil {
					return apperr.BadRequest("Invalid JSON body")
				}
				var buf bytes.Buffer
				enc := json.NewEncoder(&buf)
				enc.SetEscapeHTML(false)
				if err := enc.Encode(clean(doc)); err != nil {
					return err
				}
				out = buf.Bytes()
			}
			r.Body = io.NopCloser(bytes.NewReader(out))
			r.ContentLength = int64(len(out))
			return next(c)
		}
	}
}

func clean(v any) any {
	switch t := v.(type) {
	case string:
		return html.EscapeString(t)
	case []any:
		for i := range t {
			t[i] = clean(t[i])
		}
		return t
	case map[string]any:
		for k, vv := range t {
			if strings.HasPrefix(k, "$") {
				delete(t, k)
				continue
			}
			t[k] = clean(vv)
		}
		return t
	default:
		return v
	}
}
