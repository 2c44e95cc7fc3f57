package historical

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// LoadCSV reads a wide close-price table from disk.
func LoadCSV(path string) (*PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open price file: %w", err)
	}
	defer f.Close()

	ps, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price file %s: %w", path, err)
	}
	return ps, nil
}

// ParseCSV parses a wide close-price table: the first column is the date
// (YYYY-MM-DD), every further column is one symbol's close. Rows must be in
// ascending date order. Blank cells are gaps and are rejected, since the
// statistics stage requires a gap-free index.
func ParseCSV(r io.Reader) (*PriceSeries, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty price table")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("header must contain a date column and at least one symbol")
	}

	symbols := make([]string, len(header)-1)
	seen := make(map[string]int, len(symbols))
	for i, h := range header[1:] {
		symbols[i] = strings.ToUpper(strings.TrimSpace(h))
		if symbols[i] == "" {
			return nil, fmt.Errorf("column %d has an empty symbol", i+2)
		}
		if first, ok := seen[symbols[i]]; ok {
			return nil, fmt.Errorf("%w: %s in columns %d and %d", ErrDuplicateColumn, symbols[i], first, i+2)
		}
		seen[symbols[i]] = i + 2
	}

	var dates []time.Time
	closes := make(map[string][]float64, len(symbols))
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := time.Parse(dateLayout, strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date %q: %w", line, record[0], err)
		}
		dates = append(dates, date)

		for i, symbol := range symbols {
			cell := strings.TrimSpace(record[i+1])
			if cell == "" {
				return nil, fmt.Errorf("line %d: %w: %s has no close on %s", line, ErrMisaligned, symbol, record[0])
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil || math.IsNaN(v) {
				return nil, fmt.Errorf("line %d: invalid close %q for %s", line, cell, symbol)
			}
			closes[symbol] = append(closes[symbol], v)
		}
	}

	if len(dates) == 0 {
		return nil, fmt.Errorf("price table has no rows")
	}

	return NewPriceSeries(dates, closes)
}
