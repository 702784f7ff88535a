package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"campaign-sender/policy"
)

func TestCheckLimits(t *testing.T) {
	p := &policy.Policy{DailyLimit: 50, CurrentDailyCount: 49}
	assert.True(t, CheckLimits(p))

	p.CurrentDailyCount = 50
	assert.False(t, CheckLimits(p))

	p.CurrentDailyCount = 51
	assert.False(t, CheckLimits(p))

	p = &policy.Policy{DailyLimit: 0, CurrentDailyCount: 0}
	assert.False(t, CheckLimits(p))
}

func sessionPolicy() *policy.Policy {
	return &policy.Policy{
		ActiveDays:   []string{"Mon", "Wed", "Fri"},
		SessionTimes: "09:00-12:00, 14:00-17:00",
	}
}

// 2025-11-19 is a Wednesday, 2025-11-18 a Tuesday.
var (
	wednesday = time.Date(2025, 11, 19, 0, 0, 0, 0, time.Local)
	tuesday   = time.Date(2025, 11, 18, 0, 0, 0, 0, time.Local)
)

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.Local)
}

func TestCheckSessionActiveWindow(t *testing.T) {
	ok, reason := CheckSession(sessionPolicy(), at(wednesday, 10, 30))
	assert.True(t, ok, reason)
}

func TestCheckSessionBetweenWindows(t *testing.T) {
	ok, reason := CheckSession(sessionPolicy(), at(wednesday, 13, 0))
	assert.False(t, ok)
	assert.Contains(t, reason, "outside defined sessions")
}

func TestCheckSessionInactiveDay(t *testing.T) {
	ok, reason := CheckSession(sessionPolicy(), at(tuesday, 10, 30))
	assert.False(t, ok)
	assert.Contains(t, reason, "not an active sending day")
}

func TestCheckSessionInclusiveBounds(t *testing.T) {
	p := sessionPolicy()

	ok, _ := CheckSession(p, at(wednesday, 9, 0))
	assert.True(t, ok)

	ok, _ = CheckSession(p, at(wednesday, 12, 0))
	assert.True(t, ok)

	ok, _ = CheckSession(p, at(wednesday, 12, 1))
	assert.False(t, ok)
}

func TestCheckSessionNoWindowsIsAlwaysOpen(t *testing.T) {
	p := sessionPolicy()
	p.SessionTimes = ""

	ok, _ := CheckSession(p, at(wednesday, 3, 0))
	assert.True(t, ok)
}

func TestCheckSessionSkipsMalformedWindows(t *testing.T) {
	p := sessionPolicy()
	p.SessionTimes = "banana, 09:00-12:00"

	ok, _ := CheckSession(p, at(wednesday, 10, 30))
	assert.True(t, ok)

	p.SessionTimes = "banana, nonsense"
	ok, _ = CheckSession(p, at(wednesday, 10, 30))
	assert.False(t, ok)
}

func TestCheckSessionInvertedWindowMatchesNothing(t *testing.T) {
	// Cross-midnight windows are not supported; end before start
	// simply never matches.
	p := sessionPolicy()
	p.SessionTimes = "22:00-06:00"

	ok, _ := CheckSession(p, at(wednesday, 23, 0))
	assert.False(t, ok)

	ok, _ = CheckSession(p, at(wednesday, 3, 0))
	assert.False(t, ok)
}

func TestDelayBounds(t *testing.T) {
	for i := 0; i < 1000; i++ {
		d := Delay(30, 90)
		assert.GreaterOrEqual(t, d, 30*time.Second)
		assert.LessOrEqual(t, d, 90*time.Second)
	}
}

func TestDelaySwappedBounds(t *testing.T) {
	for i := 0; i < 1000; i++ {
		d := Delay(90, 30)
		assert.GreaterOrEqual(t, d, 30*time.Second)
		assert.LessOrEqual(t, d, 90*time.Second)
	}
}

func TestDelayZero(t *testing.T) {
	assert.Equal(t, time.Duration(0), Delay(0, 0))
}
