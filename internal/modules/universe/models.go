// Package universe models the fixed set of assets a simulation draws portfolios from.
package universe

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyUniverse is returned when a universe has no assets.
	ErrEmptyUniverse = errors.New("universe has no assets")
	// ErrDuplicateSymbol is returned when a symbol appears more than once.
	ErrDuplicateSymbol = errors.New("duplicate symbol in universe")
	// ErrEmptySymbol is returned when an asset has a blank symbol.
	ErrEmptySymbol = errors.New("asset symbol is empty")
)

// Asset is a single (symbol, sector) row of the universe table.
type Asset struct {
	Symbol string `json:"symbol"`
	Sector string `json:"sector"`
}

// Universe is an ordered, immutable sequence of assets with unique symbols.
// Asset order defines the index of every weight vector built against it.
type Universe struct {
	assets      []Asset
	index       map[string]int
	sectors     []string
	assetSector []int
}

// New validates assets and builds a Universe.
// Symbols are trimmed and upper-cased; sectors are trimmed and kept verbatim.
func New(assets []Asset) (*Universe, error) {
	if len(assets) == 0 {
		return nil, ErrEmptyUniverse
	}

	u := &Universe{
		assets:      make([]Asset, len(assets)),
		index:       make(map[string]int, len(assets)),
		assetSector: make([]int, len(assets)),
	}
	sectorIdx := make(map[string]int)

	for i, a := range assets {
		symbol := strings.ToUpper(strings.TrimSpace(a.Symbol))
		if symbol == "" {
			return nil, fmt.Errorf("row %d: %w", i, ErrEmptySymbol)
		}
		if _, dup := u.index[symbol]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSymbol, symbol)
		}
		sector := strings.TrimSpace(a.Sector)

		u.assets[i] = Asset{Symbol: symbol, Sector: sector}
		u.index[symbol] = i

		si, ok := sectorIdx[sector]
		if !ok {
			si = len(u.sectors)
			sectorIdx[sector] = si
			u.sectors = append(u.sectors, sector)
		}
		u.assetSector[i] = si
	}

	return u, nil
}

// Len returns the number of assets.
func (u *Universe) Len() int {
	return len(u.assets)
}

// Assets returns a copy of the asset rows in universe order.
func (u *Universe) Assets() []Asset {
	out := make([]Asset, len(u.assets))
	copy(out, u.assets)
	return out
}

// Asset returns the asset at index i.
func (u *Universe) Asset(i int) Asset {
	return u.assets[i]
}

// Symbols returns the asset symbols in universe order.
func (u *Universe) Symbols() []string {
	out := make([]string, len(u.assets))
	for i, a := range u.assets {
		out[i] = a.Symbol
	}
	return out
}

// IndexOf returns the position of symbol in the universe.
func (u *Universe) IndexOf(symbol string) (int, bool) {
	i, ok := u.index[strings.ToUpper(strings.TrimSpace(symbol))]
	return i, ok
}

// Sectors returns the distinct sectors in order of first appearance.
func (u *Universe) Sectors() []string {
	out := make([]string, len(u.sectors))
	copy(out, u.sectors)
	return out
}

// SectorIndex returns the index into Sectors() of the sector that asset i belongs to.
func (u *Universe) SectorIndex(i int) int {
	return u.assetSector[i]
}

// SectorOf returns the sector label for symbol.
func (u *Universe) SectorOf(symbol string) (string, bool) {
	i, ok := u.IndexOf(symbol)
	if !ok {
		return "", false
	}
	return u.assets[i].Sector, true
}
