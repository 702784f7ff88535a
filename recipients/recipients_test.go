package recipients

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-sender/models"
)

func TestParse(t *testing.T) {
	csv := "Name,Email\nAlice,alice@example.com\nBob,bob@example.com\n"

	got, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, []models.Recipient{
		{Name: "Alice", Email: "alice@example.com"},
		{Name: "Bob", Email: "bob@example.com"},
	}, got)
}

func TestParseCaseInsensitiveHeaders(t *testing.T) {
	csv := "EMAIL,NAME\nalice@example.com,Alice\n"

	got, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alice", got[0].Name)
	assert.Equal(t, "alice@example.com", got[0].Email)
}

func TestParseTrimsBOM(t *testing.T) {
	csv := "\ufeffName,Email\nAlice,alice@example.com\n"

	got, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestParseDropsEmptyEmails(t *testing.T) {
	csv := "Name,Email\nAlice,alice@example.com\nNobody,\nBob,bob@example.com\n"

	got, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, []models.Recipient{
		{Name: "Alice", Email: "alice@example.com"},
		{Name: "Bob", Email: "bob@example.com"},
	}, got)
}

func TestParseMissingColumnsIsFatal(t *testing.T) {
	_, err := Parse(strings.NewReader("Name,Phone\nAlice,555\n"))
	assert.ErrorIs(t, err, ErrMissingColumns)

	_, err = Parse(strings.NewReader("Email\nalice@example.com\n"))
	assert.ErrorIs(t, err, ErrMissingColumns)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.csv")
	require.NoError(t, os.WriteFile(path, []byte("Name,Email\nAlice,alice@example.com\n"), 0o644))

	got, err := Load(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestFilterRemovesHistoryPreservesOrder(t *testing.T) {
	raw := []models.Recipient{
		{Name: "A", Email: "a@example.com"},
		{Name: "B", Email: "b@example.com"},
		{Name: "C", Email: "c@example.com"},
		{Name: "D", Email: "d@example.com"},
	}
	history := map[string]struct{}{
		"b@example.com": {},
		"d@example.com": {},
	}

	got := Filter(raw, history)
	assert.Equal(t, []models.Recipient{
		{Name: "A", Email: "a@example.com"},
		{Name: "C", Email: "c@example.com"},
	}, got)
}

func TestFilterIdempotent(t *testing.T) {
	raw := []models.Recipient{
		{Name: "A", Email: "a@example.com"},
		{Name: "B", Email: "b@example.com"},
	}
	history := map[string]struct{}{"a@example.com": {}}

	once := Filter(raw, history)
	twice := Filter(once, history)
	assert.Equal(t, once, twice)
}

func TestFilterEmptyHistory(t *testing.T) {
	raw := []models.Recipient{{Name: "A", Email: "a@example.com"}}
	got := Filter(raw, map[string]struct{}{})
	assert.Equal(t, raw, got)
}
