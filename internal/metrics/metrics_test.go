package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/tours", "200"))
	RecordHTTPRequest("GET", "/api/v1/tours", 200, 15*time.Millisecond)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/tours", "200"))
	if after != before+1 {
		t.Errorf("counter = %v, want %v", after, before+1)
	}
}

func TestRecordMailDispatch(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		result string
	}{
		{"success", nil, "success"},
		{"failure", errors.New("smtp down"), "failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := MailDispatch.WithLabelValues("smtp", tt.result)
			before := testutil.ToFloat64(c)
			RecordMailDispatch("smtp", tt.err)
			if got := testutil.ToFloat64(c); got != before+1 {
				t.Errorf("%s counter = %v", tt.result, got)
			}
		})
	}
}

func TestRecordAuthFailure(t *testing.T) {
	c := AuthFailures.WithLabelValues("expired")
	before := testutil.ToFloat64(c)
	RecordAuthFailure("expired")
	if testutil.ToFloat64(c) != before+1 {
		t.Error("auth failure not counted")
	}
}
