package recipients

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"campaign-sender/models"
)

// ErrMissingColumns is returned when the input CSV lacks the required
// name or email column.
var ErrMissingColumns = errors.New("CSV must contain 'Name' and 'Email' columns")

// Load reads the input CSV. Headers are matched case-insensitively and
// a UTF-8 BOM on the first header is tolerated. Rows with an empty
// email are dropped. A missing required column is fatal.
func Load(path string) ([]models.Recipient, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recipient file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads recipient rows from r. Split out from Load so the HTTP
// layer can accept uploaded files directly.
func Parse(r io.Reader) ([]models.Recipient, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	nameIdx, emailIdx := -1, -1
	for i, col := range header {
		col = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		switch col {
		case "name":
			nameIdx = i
		case "email":
			emailIdx = i
		}
	}
	if nameIdx < 0 || emailIdx < 0 {
		return nil, ErrMissingColumns
	}

	var recipients []models.Recipient
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		if emailIdx >= len(row) || strings.TrimSpace(row[emailIdx]) == "" {
			continue
		}
		name := ""
		if nameIdx < len(row) {
			name = row[nameIdx]
		}
		recipients = append(recipients, models.Recipient{
			Name:  name,
			Email: row[emailIdx],
		})
	}

	return recipients, nil
}

// Filter returns only recipients whose email is not in the sent
// history, preserving the order of the input list.
func Filter(raw []models.Recipient, history map[string]struct{}) []models.Recipient {
	filtered := make([]models.Recipient, 0, len(raw))
	for _, r := range raw {
		if _, sent := history[r.Email]; sent {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}
