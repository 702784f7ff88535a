package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexInt unmarshals from either a JSON number or a numeric string.
// The settings UI historically persisted the daily limit as a string,
// so old documents carry `"daily_limit": "50"`.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 1 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid numeric value %q: %w", s, err)
		}
		*f = FlexInt(n)
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(f))
}

func (f FlexInt) Int() int {
	return int(f)
}

// Template is one subject/body pair. Placeholders {Name} and {Email}
// are substituted at send time.
type Template struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Policy is the operator-owned campaign configuration. It lives in a
// single JSON document and may be edited between sends; the driver
// re-reads it before every attempt.
type Policy struct {
	SenderEmail       string     `json:"sender_email"`
	AppPassword       string     `json:"app_password"`
	DailyLimit        FlexInt    `json:"daily_limit"`
	CurrentDailyCount int        `json:"current_daily_count"`
	MinDelay          float64    `json:"min_delay"`
	MaxDelay          float64    `json:"max_delay"`
	LastRunDate       string     `json:"last_run_date"`
	ActiveDays        []string   `json:"active_days"`
	SessionTimes      string     `json:"session_times"`
	Templates         []Template `json:"templates"`
}

// Default returns the policy written when no document exists yet.
func Default() *Policy {
	return &Policy{
		DailyLimit:   50,
		MinDelay:     30,
		MaxDelay:     90,
		ActiveDays:   []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
		SessionTimes: "09:00-12:00, 14:00-17:00",
		Templates: []Template{
			{Subject: "Subject 1", Body: "Hello {Name}, ..."},
			{Subject: "Subject 2", Body: "Hi {Name}, ..."},
			{Subject: "Subject 3", Body: "Dear {Name}, ..."},
		},
	}
}

// HasCredentials reports whether the policy carries enough to
// authenticate against the SMTP server.
func (p *Policy) HasCredentials() bool {
	return p.SenderEmail != "" && p.AppPassword != ""
}
