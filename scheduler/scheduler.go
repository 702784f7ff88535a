package scheduler

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"campaign-sender/policy"
)

// Fixed Mon-Sun enumeration used by the active_days setting.
var daysMap = map[string]time.Weekday{
	"Mon": time.Monday,
	"Tue": time.Tuesday,
	"Wed": time.Wednesday,
	"Thu": time.Thursday,
	"Fri": time.Friday,
	"Sat": time.Saturday,
	"Sun": time.Sunday,
}

// CheckLimits reports whether the daily quota still has room.
func CheckLimits(p *policy.Policy) bool {
	return p.CurrentDailyCount < p.DailyLimit.Int()
}

// CheckSession reports whether sending is allowed at the given time,
// with a human-readable reason when it is not.
//
// session_times format: "09:00-12:00, 14:00-17:00". Malformed entries
// are skipped, not fatal. Bounds are inclusive. A window whose end
// precedes its start matches nothing; cross-midnight windows are not
// supported.
func CheckSession(p *policy.Policy, now time.Time) (bool, string) {
	activeToday := false
	for _, d := range p.ActiveDays {
		if wd, ok := daysMap[d]; ok && wd == now.Weekday() {
			activeToday = true
			break
		}
	}
	if !activeToday {
		return false, "Today is not an active sending day."
	}

	timeStr := strings.TrimSpace(p.SessionTimes)
	if timeStr == "" {
		return true, "No sessions defined (Always Open)"
	}

	current := now.Hour()*60 + now.Minute()
	for _, r := range strings.Split(timeStr, ",") {
		start, end, err := parseWindow(r)
		if err != nil {
			continue
		}
		if start <= current && current <= end {
			return true, "Session Active"
		}
	}

	return false, "Current time is outside defined sessions."
}

// parseWindow parses "HH:MM-HH:MM" into minutes-of-day bounds.
func parseWindow(window string) (start, end int, err error) {
	parts := strings.SplitN(strings.TrimSpace(window), "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed session window %q", window)
	}
	start, err = parseMinutes(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err = parseMinutes(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func parseMinutes(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Delay returns a throttle duration drawn uniformly from
// [minDelay, maxDelay] seconds. Swapped bounds are tolerated.
func Delay(minDelay, maxDelay float64) time.Duration {
	if minDelay > maxDelay {
		minDelay, maxDelay = maxDelay, minDelay
	}
	seconds := minDelay + rand.Float64()*(maxDelay-minDelay)
	return time.Duration(seconds * float64(time.Second))
}
