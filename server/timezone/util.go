// Package timezone provides timezone parsing for the prompt time-context
// line and operator-facing timestamps.
package timezone

import (
	"time"

	"github.com/tzefoong/relaybot/internal/errkit"
)

// Parse resolves an IANA timezone identifier (e.g. "Asia/Singapore"). An
// invalid identifier is a configuration error; the fallback location is UTC.
func Parse(tz string) (*time.Location, error) {
	if tz == "" || tz == "UTC" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC, errkit.Wrap(err, errkit.CodeConfiguration, "invalid timezone "+tz)
	}
	return loc, nil
}

// MustParse parses a timezone or panics. For identifiers known valid at
// compile time.
func MustParse(tz string) *time.Location {
	loc, err := Parse(tz)
	if err != nil {
		panic(err)
	}
	return loc
}

// IsValid reports whether a timezone identifier resolves.
func IsValid(tz string) bool {
	_, err := Parse(tz)
	return err == nil
}

// Now returns the current time in the given location.
func Now(loc *time.Location) time.Time {
	return time.Now().In(loc)
}
