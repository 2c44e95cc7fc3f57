package universe

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// SecurityRepository reads the universe table from universe.db.
type SecurityRepository struct {
	universeDB *sql.DB // universe.db - securities table
	log        zerolog.Logger
}

// NewSecurityRepository creates a new security repository
func NewSecurityRepository(universeDB *sql.DB, log zerolog.Logger) *SecurityRepository {
	return &SecurityRepository{
		universeDB: universeDB,
		log:        log.With().Str("repo", "security").Logger(),
	}
}

// Load returns every security as a Universe ordered by symbol.
func (r *SecurityRepository) Load(ctx context.Context) (*Universe, error) {
	rows, err := r.universeDB.QueryContext(ctx, `SELECT symbol, sector FROM securities ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query securities: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var a Asset
		var sector sql.NullString
		if err := rows.Scan(&a.Symbol, &sector); err != nil {
			return nil, fmt.Errorf("failed to scan security: %w", err)
		}
		a.Sector = sector.String
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating securities: %w", err)
	}

	u, err := New(assets)
	if err != nil {
		return nil, err
	}

	r.log.Debug().Int("assets", u.Len()).Int("sectors", len(u.sectors)).Msg("Loaded universe")
	return u, nil
}

// Upsert inserts or updates a security row.
func (r *SecurityRepository) Upsert(ctx context.Context, asset Asset) error {
	_, err := r.universeDB.ExecContext(ctx, `
		INSERT INTO securities (symbol, sector) VALUES (?, ?)
		ON CONFLICT(symbol) DO UPDATE SET sector = excluded.sector
	`, strings.ToUpper(strings.TrimSpace(asset.Symbol)), strings.TrimSpace(asset.Sector))
	if err != nil {
		return fmt.Errorf("failed to upsert security %s: %w", asset.Symbol, err)
	}
	return nil
}

// Delete removes a security row. Deleting an unknown symbol is not an error.
func (r *SecurityRepository) Delete(ctx context.Context, symbol string) error {
	_, err := r.universeDB.ExecContext(ctx, `DELETE FROM securities WHERE symbol = ?`, strings.ToUpper(strings.TrimSpace(symbol)))
	if err != nil {
		return fmt.Errorf("failed to delete security %s: %w", symbol, err)
	}
	return nil
}
