package outcome

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"campaign-sender/models"
)

const timestampLayout = "2006-01-02 15:04:05"

// Log is the append-only record of send outcomes: one CSV file for
// successes, one for failures. The success file doubles as the send
// history used to de-duplicate future campaigns.
type Log struct {
	sentPath   string
	failedPath string
	mu         sync.Mutex
	now        func() time.Time
}

// NewLog creates both files with headers when they do not exist yet.
func NewLog(sentPath, failedPath string) (*Log, error) {
	l := &Log{sentPath: sentPath, failedPath: failedPath, now: time.Now}

	if err := ensureFile(sentPath, []string{"Email", "Name", "Timestamp", "Template_ID"}); err != nil {
		return nil, err
	}
	if err := ensureFile(failedPath, []string{"Email", "Name", "Timestamp", "Error_Message"}); err != nil {
		return nil, err
	}
	return l, nil
}

func ensureFile(path string, header []string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", path, err)
	}
	w.Flush()
	return w.Error()
}

// Success appends a success record. The row is flushed before return
// so the driver never advances past an unrecorded outcome.
func (l *Log) Success(r models.Recipient, templateID int) error {
	return l.appendRow(l.sentPath, []string{
		r.Email, r.Name, l.now().Format(timestampLayout), strconv.Itoa(templateID),
	})
}

// Failure appends a failure record.
func (l *Log) Failure(r models.Recipient, sendErr error) error {
	return l.appendRow(l.failedPath, []string{
		r.Email, r.Name, l.now().Format(timestampLayout), sendErr.Error(),
	})
}

func (l *Log) appendRow(path string, row []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return f.Sync()
}

// SentEmails returns the set of addresses that already received a
// successful send.
func (l *Log) SentEmails() (map[string]struct{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.sentPath)
	if os.IsNotExist(err) {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", l.sentPath, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	sent := make(map[string]struct{})
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", l.sentPath, err)
		}
		if first {
			first = false
			continue
		}
		if len(row) > 0 && row[0] != "" {
			sent[row[0]] = struct{}{}
		}
	}
	return sent, nil
}
