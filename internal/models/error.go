package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")
)

// BanError signals that a login attempt was rejected because the client IP
// is banned. JustBanned distinguishes the attempt that crossed the threshold
// from an attempt made while an earlier ban is still being served: the
// freshly-banned message quotes the configured duration, the existing-ban
// message quotes the computed remainder.
type BanError struct {
	IP              string
	BannedUntil     time.Time
	JustBanned      bool
	DurationMinutes int // configured ban duration, set when JustBanned
}

func (e *BanError) Error() string {
	if e.JustBanned {
		return fmt.Sprintf("ip %s banned until %s", e.IP, e.BannedUntil.Format(time.RFC3339))
	}
	return fmt.Sprintf("ip %s is banned until %s", e.IP, e.BannedUntil.Format(time.RFC3339))
}

// RemainingMinutes returns the ceiling of the time left on the ban, in
// minutes, never less than zero.
func (e *BanError) RemainingMinutes(now time.Time) int64 {
	remaining := e.BannedUntil.Sub(now)
	if remaining <= 0 {
		return 0
	}
	minutes := int64(remaining / time.Minute)
	if remaining%time.Minute != 0 {
		minutes++
	}
	return minutes
}
