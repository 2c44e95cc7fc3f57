package historical

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	input := "date,AAPL,msft\n2024-01-02,100,50\n2024-01-03,101.5,49\n2024-01-04,99,51\n"

	ps, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 3, ps.Len())
	assert.Equal(t, []string{"AAPL", "MSFT"}, ps.Symbols())
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), ps.Dates()[1])

	closes, ok := ps.Closes("MSFT")
	require.True(t, ok)
	assert.Equal(t, []float64{50, 49, 51}, closes)
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		isErr error
	}{
		{"empty", "", nil},
		{"no symbols", "date\n2024-01-02\n", nil},
		{"no rows", "date,A\n", nil},
		{"bad date", "date,A\n02/01/2024,1\n", nil},
		{"bad close", "date,A\n2024-01-02,abc\n", nil},
		{"NaN close", "date,A\n2024-01-02,NaN\n", nil},
		{"gap", "date,A,B\n2024-01-02,1,2\n2024-01-03,,2\n", ErrMisaligned},
		{"dates not increasing", "date,A\n2024-01-03,1\n2024-01-02,2\n", ErrMisaligned},
		{"duplicate column", "date,A,a\n2024-01-02,1,2\n", ErrDuplicateColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			if tt.isErr != nil {
				assert.ErrorIs(t, err, tt.isErr)
			}
		})
	}
}

func TestParseCSV_DuplicateColumnNamesBothColumns(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("date,A,B,a\n2024-01-02,1,2,3\n2024-01-03,1,2,3\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateColumn)
	assert.NotErrorIs(t, err, ErrMisaligned)
	assert.Contains(t, err.Error(), "A in columns 2 and 4")
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,A\n2024-01-02,1\n2024-01-03,2\n"), 0644))

	ps, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, 2, ps.Len())

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
