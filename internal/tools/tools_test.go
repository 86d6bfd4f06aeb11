package tools

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInNetwork(t *testing.T) {
	handler := CheckInNetwork(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		remote string
		want   int
	}{
		{"127.0.0.1:5000", http.StatusNoContent},
		{"[::1]:5000", http.StatusNoContent},
		{"192.168.1.20:5000", http.StatusNoContent},
		{"10.1.2.3:5000", http.StatusNoContent},
		{"172.20.0.4:5000", http.StatusNoContent},
		{"8.8.8.8:5000", http.StatusForbidden},
		{"not-an-address", http.StatusBadRequest},
		{"host:5000", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
			req.RemoteAddr = tt.remote
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func formRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/lightmeter/graph", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestParseStartAndEndDate(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	start, end, err := ParseStartAndEndDate(formRequest(url.Values{
		"start": {"2024-07-01T08:00"},
		"end":   {"2024-07-01T20:30"},
	}), loc)
	require.NoError(t, err)
	// EDT is UTC-4
	assert.Equal(t, "2024-07-01 12:00:00", start)
	assert.Equal(t, "2024-07-02 00:30:00", end)
}

func TestParseStartAndEndDate_Default(t *testing.T) {
	start, end, err := ParseStartAndEndDate(formRequest(url.Values{}), time.UTC)
	require.NoError(t, err)

	s, e, err := StartAndEndDateToTime(start, end)
	require.NoError(t, err)
	assert.Equal(t, DefaultRange, e.Sub(s))
	assert.WithinDuration(t, time.Now().UTC(), e, time.Minute)
}

func TestParseStartAndEndDate_Invalid(t *testing.T) {
	_, _, err := ParseStartAndEndDate(formRequest(url.Values{
		"start": {"yesterday"},
		"end":   {"2024-07-01T20:30"},
	}), time.UTC)
	assert.Error(t, err)

	_, _, err = ParseStartAndEndDate(formRequest(url.Values{
		"start": {"2024-07-02T08:00"},
		"end":   {"2024-07-01T08:00"},
	}), time.UTC)
	assert.Error(t, err)
}
