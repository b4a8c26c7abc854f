package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultExpiry is used when expiresIn is absent or unparseable.
const DefaultExpiry = 24 * time.Hour

var (
	shorthandPattern = regexp.MustCompile(`^(\d+)([smhd])$`)
	isoHoursPattern  = regexp.MustCompile(`^PT(\d+)H$`)
	epochMsPattern   = regexp.MustCompile(`^\d+$`)
)

// ExpiryWindow bounds the lifetime a client may request.
type ExpiryWindow struct {
	Min     time.Duration
	Max     time.Duration
	Default time.Duration
}

// Clamp bounds d to [Min, Max]. A zero bound is ignored.
func (w ExpiryWindow) Clamp(d time.Duration) time.Duration {
	if w.Min > 0 && d < w.Min {
		return w.Min
	}
	if w.Max > 0 && d > w.Max {
		return w.Max
	}
	return d
}

func (w ExpiryWindow) fallback() time.Duration {
	if w.Default > 0 {
		return w.Clamp(w.Default)
	}
	return w.Clamp(DefaultExpiry)
}

// ParseExpiresIn turns raw into a lifetime relative to now. It accepts "<n>s|m|h|d",
// "PT<n>H" and a bare integer read as an absolute epoch-milliseconds instant.
// Empty, unparseable or past values fall back to the window default.
func ParseExpiresIn(raw string, now time.Time, window ExpiryWindow) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return window.fallback()
	}

	if m := shorthandPattern.FindStringSubmatch(strings.ToLower(raw)); m != nil {
		unit := map[string]time.Duration{
			"s": time.Second,
			"m": time.Minute,
			"h": time.Hour,
			"d": 24 * time.Hour,
		}[m[2]]
		return window.multiply(m[1], unit)
	}

	if m := isoHoursPattern.FindStringSubmatch(strings.ToUpper(raw)); m != nil {
		return window.multiply(m[1], time.Hour)
	}

	if epochMsPattern.MatchString(raw) {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return window.fallback()
		}
		delta := time.UnixMilli(ms).Sub(now)
		if delta <= 0 {
			return window.fallback()
		}
		return window.Clamp(delta)
	}

	return window.fallback()
}

func (w ExpiryWindow) multiply(digits string, unit time.Duration) time.Duration {
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		// Only overflow gets here; the pattern already guarantees digits.
		return w.Clamp(time.Duration(math.MaxInt64))
	}
	if n > int64(time.Duration(math.MaxInt64)/unit) {
		return w.Clamp(time.Duration(math.MaxInt64))
	}
	return w.Clamp(time.Duration(n) * unit)
}
