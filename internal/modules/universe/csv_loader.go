package universe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadCSV reads a universe table from a CSV file with symbol and sector columns.
func LoadCSV(path string) (*Universe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open universe file: %w", err)
	}
	defer f.Close()

	u, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse universe file %s: %w", path, err)
	}
	return u, nil
}

// ParseCSV parses a universe table. The header must contain "symbol" and
// "sector" columns (case-insensitive); any other columns are ignored.
func ParseCSV(r io.Reader) (*Universe, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyUniverse
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	symbolCol, sectorCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "symbol":
			symbolCol = i
		case "sector":
			sectorCol = i
		}
	}
	if symbolCol < 0 || sectorCol < 0 {
		return nil, fmt.Errorf("header must contain symbol and sector columns, got %v", header)
	}

	var assets []Asset
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
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if symbolCol >= len(record) || sectorCol >= len(record) {
			return nil, fmt.Errorf("line %d: expected at least %d columns, got %d", line, max(symbolCol, sectorCol)+1, len(record))
		}
		assets = append(assets, Asset{Symbol: record[symbolCol], Sector: record[sectorCol]})
	}

	return New(assets)
}
