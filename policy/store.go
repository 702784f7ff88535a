package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

const dateLayout = "2006-01-02"

// Store persists the policy document as pretty-printed JSON at a fixed
// path. Load always returns live values, resetting the daily counter on
// date rollover. The store never clamps the counter against the limit;
// that is the driver's job.
type Store struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Load reads the document, creating it with defaults when absent.
// Missing newer fields are backfilled, and the daily counter is reset
// and the file rewritten whenever the stored date is not today.
func (s *Store) Load() (*Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*Policy, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		p := Default()
		p.LastRunDate = s.now().Format(dateLayout)
		if err := s.save(p); err != nil {
			return nil, err
		}
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	p := &Policy{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	// Backfill fields added after the document was first written.
	changed := false
	if p.MinDelay == 0 && p.MaxDelay == 0 {
		p.MinDelay = 30
		p.MaxDelay = 90
		changed = true
	}
	if len(p.Templates) == 0 {
		p.Templates = Default().Templates
		changed = true
	}

	today := s.now().Format(dateLayout)
	if p.LastRunDate != today {
		p.LastRunDate = today
		p.CurrentDailyCount = 0
		changed = true
	}

	if changed {
		if err := s.save(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Current returns the live policy values. It is the accessor the
// campaign driver calls before every send attempt.
func (s *Store) Current() (*Policy, error) {
	return s.Load()
}

// Save rewrites the whole document.
func (s *Store) Save(p *Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(p)
}

func (s *Store) save(p *Policy) error {
	data, err := json.MarshalIndent(p, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode policy: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write policy file: %w", err)
	}
	return nil
}

// IncrementDailyCount performs a load-increment-store of the daily
// counter. The store mutex keeps the read and the write of one
// increment from interleaving with another.
func (s *Store) IncrementDailyCount() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load()
	if err != nil {
		return err
	}
	p.CurrentDailyCount++
	return s.save(p)
}
