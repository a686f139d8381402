package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/karrick/tparse/v2"
)

var (
	usageLimitPattern = regexp.MustCompile(`^\d+$`)
	lifetimePattern   = regexp.MustCompile(`(?i)^(\d+)([mhdw])$`)
)

// lifetimeUnitSeconds sizes each lifetime unit for the overflow check
var lifetimeUnitSeconds = map[string]int64{
	"m": 60,
	"h": 3600,
	"d": 86400,
	"w": 604800,
}

// maxLifetimeSeconds is the longest lifetime a time.Duration can hold
const maxLifetimeSeconds = math.MaxInt64 / int64(time.Second)

// ParseLinkArgs splits free-form argument text on whitespace and parses it
// with ParseLinkTokens
func ParseLinkArgs(text string, now time.Time) LinkArgs {
	return ParseLinkTokens(strings.Fields(text), now)
}

// ParseLinkTokens reads an optional usage limit and an optional lifetime from
// tokens. A token of digits only sets the usage limit; digits followed by one
// of m, h, d or w (any case) set the expiry relative to now. Later tokens
// override earlier ones and anything else is ignored, including lifetimes too
// long to represent.
func ParseLinkTokens(tokens []string, now time.Time) LinkArgs {
	var args LinkArgs

	for _, token := range tokens {
		if usageLimitPattern.MatchString(token) {
			limit, err := strconv.Atoi(token)
			if err != nil {
				continue
			}
			args.UsageLimit = &limit
			continue
		}

		m := lifetimePattern.FindStringSubmatch(token)
		if m == nil {
			continue
		}

		unit := strings.ToLower(m[2])
		value, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || value > maxLifetimeSeconds/lifetimeUnitSeconds[unit] {
			continue
		}

		expiresAt, err := tparse.AddDuration(now, m[1]+unit)
		if err != nil {
			continue
		}
		args.ExpiresAt = &expiresAt
	}

	return args
}

// RemainingSeconds returns the whole seconds left until expiresAt, truncated
// toward zero
func RemainingSeconds(expiresAt, now time.Time) int64 {
	return int64(expiresAt.Sub(now) / time.Second)
}

// DurationUnits holds the display suffixes for FormatRemaining
type DurationUnits struct {
	Expired string
	Days    string
	Hours   string
	Minutes string
	Seconds string
}

// FormatRemaining renders seconds as "1d 2h 3m 4s", omitting zero units.
// Non-positive values render as units.Expired.
func FormatRemaining(seconds int64, units DurationUnits) string {
	if seconds <= 0 {
		return units.Expired
	}

	d := seconds / 86400
	h := seconds % 86400 / 3600
	m := seconds % 3600 / 60
	s := seconds % 60

	parts := make([]string, 0, 4)
	if d > 0 {
		parts = append(parts, strconv.FormatInt(d, 10)+units.Days)
	}
	if h > 0 {
		parts = append(parts, strconv.FormatInt(h, 10)+units.Hours)
	}
	if m > 0 {
		parts = append(parts, strconv.FormatInt(m, 10)+units.Minutes)
	}
	if s > 0 {
		parts = append(parts, strconv.FormatInt(s, 10)+units.Seconds)
	}

	return strings.Join(parts, " ")
}
