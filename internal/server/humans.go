package server

import (
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/andresmejia3/vigil/internal/store"
)

// DefaultBound is used for a missing start_date or end_date.
const DefaultBound = "2025-01-01 00:00:00"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)

// parseRange reads start_date/end_date from the query string or a form body.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	start, err := parseBound(r, "start_date")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseBound(r, "end_date")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func parseBound(r *http.Request, field string) (time.Time, error) {
	v := r.FormValue(field)
	if v == "" {
		v = DefaultBound
	}
	if !datePattern.MatchString(v) {
		return time.Time{}, fmt.Errorf("%s: expected YYYY-MM-DD HH:MM:SS, got %q", field, v)
	}
	t, err := time.ParseInLocation(store.Layout, v, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return t, nil
}
