// Package historical holds aligned daily close-price series for the asset universe.
package historical

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrMisaligned is returned when series do not share one date index.
	ErrMisaligned = errors.New("price series are not aligned")
	// ErrMissingSeries is returned when a requested symbol has no series.
	ErrMissingSeries = errors.New("missing price series")
	// ErrDuplicateColumn is returned when a price table names a symbol twice.
	ErrDuplicateColumn = errors.New("duplicate symbol column")
)

// PriceSeries is a set of close-price series sharing a single, time-ordered date index.
type PriceSeries struct {
	dates  []time.Time
	closes map[string][]float64
}

// NewPriceSeries validates that every series has one close per date and that
// dates are strictly increasing. Symbols are upper-cased.
// A nil dates slice is allowed when the caller has no calendar (e.g. JSON input);
// alignment is then checked by length only.
func NewPriceSeries(dates []time.Time, closes map[string][]float64) (*PriceSeries, error) {
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("%w: dates not strictly increasing at %s", ErrMisaligned, dates[i].Format("2006-01-02"))
		}
	}

	ps := &PriceSeries{
		dates:  dates,
		closes: make(map[string][]float64, len(closes)),
	}

	length := len(dates)
	first := ""
	for _, symbol := range sortedKeys(closes) {
		series := closes[symbol]
		if dates == nil && first == "" {
			first = symbol
			length = len(series)
		}
		if len(series) != length {
			return nil, fmt.Errorf("%w: %s has %d closes, expected %d", ErrMisaligned, symbol, len(series), length)
		}
		key := strings.ToUpper(strings.TrimSpace(symbol))
		if _, dup := ps.closes[key]; dup {
			return nil, fmt.Errorf("duplicate price series for %s", key)
		}
		cp := make([]float64, len(series))
		copy(cp, series)
		ps.closes[key] = cp
	}

	return ps, nil
}

// Dates returns the shared date index (nil when unknown).
func (p *PriceSeries) Dates() []time.Time {
	return p.dates
}

// Len returns the number of observations per series.
func (p *PriceSeries) Len() int {
	if p.dates != nil {
		return len(p.dates)
	}
	for _, s := range p.closes {
		return len(s)
	}
	return 0
}

// Closes returns the close series for symbol.
func (p *PriceSeries) Closes(symbol string) ([]float64, bool) {
	s, ok := p.closes[strings.ToUpper(strings.TrimSpace(symbol))]
	return s, ok
}

// Symbols returns the symbols with a series, sorted.
func (p *PriceSeries) Symbols() []string {
	return sortedKeys(p.closes)
}

// Require returns ErrMissingSeries naming the first symbol without a series.
func (p *PriceSeries) Require(symbols []string) error {
	for _, s := range symbols {
		if _, ok := p.Closes(s); !ok {
			return fmt.Errorf("%w: %s", ErrMissingSeries, s)
		}
	}
	return nil
}

func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
