package handler

import (
	"net/http"
	"testing"

	"github.com/iliyamo/tour-booking-api/internal/apperr"
)

func TestParseLatLng(t *testing.T) {
	tests := []struct {
		raw      string
		lat, lng float64
		ok       bool
	}{
		{"34.111745,-118.113491", 34.111745, -118.113491, true},
		{" 0 , 0 ", 0, 0, true},
		{"-90,180", -90, 180, true},
		{"91,0", 0, 0, false},
		{"0,-181", 0, 0, false},
		{"34.1", 0, 0, false},
		{"a,b", 0, 0, false},
		{"NaN,0", 0, 0, false},
		{"0,nan", 0, 0, false},
		{"Inf,0", 0, 0, false},
		{"0,-Infinity", 0, 0, false},
	}
	for _, tt := range tests {
		lat, lng, err := parseLatLng(tt.raw)
		if !tt.ok {
			ae, isApp := apperr.As(err)
			if !isApp || ae.Code != http.StatusBadRequest || ae.Message != MsgBadLatLng {
				t.Errorf("%q: err = %v", tt.raw, err)
			}
			continue
		}
		if err != nil || lat != tt.lat || lng != tt.lng {
			t.Errorf("%q = %v,%v,%v", tt.raw, lat, lng, err)
		}
	}
}

func TestParseFinite(t *testing.T) {
	for _, raw := range []string{"NaN", "+Inf", "-inf", "infinity"} {
		if _, err := parseFinite(raw); err == nil {
			t.Errorf("%q accepted", raw)
		}
	}
	if f, err := parseFinite("250"); err != nil || f != 250 {
		t.Errorf("250 = %v, %v", f, err)
	}
}
