package tools

import (
	"fmt"
	"net"
	"net/http"
	"time"
)

const (
	layoutInput = "2006-01-02T15:04"
	layoutDB    = "2006-01-02 15:04:05"

	DefaultRange = 8 * time.Hour
)

// Prevent out-of-network requests to control endpoints
func CheckInNetwork(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		parsedIP := net.ParseIP(ip)
		if parsedIP == nil {
			http.Error(w, "Invalid IP address", http.StatusBadRequest)
			return
		}
		if !isLocalAddress(parsedIP) {
			http.Error(w, "Access denied", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isLocalAddress(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate()
}

// ParseStartAndEndDate reads the start and end form values (datetime-local
// format, interpreted in loc) and returns them as UTC strings comparable with
// the created_at column. With either value missing, the last DefaultRange is used.
func ParseStartAndEndDate(r *http.Request, loc *time.Location) (string, string, error) {
	if err := r.ParseForm(); err != nil {
		return "", "", err
	}
	startDate := r.FormValue("start")
	endDate := r.FormValue("end")
	if startDate == "" || endDate == "" {
		now := time.Now().UTC()
		return now.Add(-DefaultRange).Format(layoutDB), now.Format(layoutDB), nil
	}
	if loc == nil {
		loc = time.UTC
	}

	start, err := time.ParseInLocation(layoutInput, startDate, loc)
	if err != nil {
		return "", "", fmt.Errorf("start date: %w", err)
	}
	end, err := time.ParseInLocation(layoutInput, endDate, loc)
	if err != nil {
		return "", "", fmt.Errorf("end date: %w", err)
	}
	if end.Before(start) {
		return "", "", fmt.Errorf("end date %s is before start date %s", endDate, startDate)
	}
	return start.UTC().Format(layoutDB), end.UTC().Format(layoutDB), nil
}

func StartAndEndDateToTime(startDate string, endDate string) (time.Time, time.Time, error) {
	start, err := time.Parse(layoutDB, startDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse(layoutDB, endDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
