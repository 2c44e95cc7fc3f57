package montecarlo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/frontier/internal/modules/historical"
	"github.com/aristath/frontier/internal/modules/universe"
	"github.com/aristath/frontier/pkg/formulas"
)

// correlationTolerance bounds the rounding slack accepted on symmetry, the
// unit diagonal and the [-1, 1] range of a supplied correlation matrix.
const correlationTolerance = 1e-9

// ReturnStatistics is computed once per run and read-only afterwards.
type ReturnStatistics struct {
	Symbols           []string
	AnnualizedReturns []float64
	Correlation       *mat.SymDense
	Observations      int // daily returns per asset; 0 when supplied directly
}

// Len returns the number of assets.
func (s *ReturnStatistics) Len() int {
	return len(s.Symbols)
}

// CorrelationRows returns the correlation matrix as nested slices.
func (s *ReturnStatistics) CorrelationRows() [][]float64 {
	n := s.Len()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		for j := range rows[i] {
			rows[i][j] = s.Correlation.At(i, j)
		}
	}
	return rows
}

// ComputeStatistics turns aligned close prices into annualized returns and a
// Pearson correlation matrix of daily simple returns.
//
// Daily return: (p[t] - p[t-1]) / p[t-1] for t >= 1.
// Annualized return: (1 + mean daily return)^252 - 1.
//
// Any asset with fewer than two closes fails with ErrInsufficientHistory.
// A negative close, or any non-finite daily return, mean or correlation, fails
// with ErrInvalidStatistics.
// Both carry the offending symbol in a *StatisticsError.
func ComputeStatistics(u *universe.Universe, prices *historical.PriceSeries) (*ReturnStatistics, error) {
	n := u.Len()
	symbols := u.Symbols()

	observations := -1
	columns := make([][]float64, n)

	for i, symbol := range symbols {
		closes, ok := prices.Closes(symbol)
		if !ok || len(closes) < 2 {
			return nil, &StatisticsError{
				Kind:   ErrInsufficientHistory,
				Symbol: symbol,
				Index:  i,
				Detail: fmt.Sprintf("%d price observations, need at least 2", len(closes)),
			}
		}

		for t, c := range closes {
			if c < 0 {
				return nil, &StatisticsError{
					Kind:   ErrInvalidStatistics,
					Symbol: symbol,
					Index:  i,
					Detail: fmt.Sprintf("negative close %v at observation %d", c, t),
				}
			}
		}

		daily := formulas.DailyReturns(closes)
		if t := formulas.FirstNonFinite(daily); t >= 0 {
			return nil, &StatisticsError{
				Kind:   ErrInvalidStatistics,
				Symbol: symbol,
				Index:  i,
				Detail: fmt.Sprintf("non-finite daily return at observation %d (prices %v -> %v)", t+1, closes[t], closes[t+1]),
			}
		}

		if observations >= 0 && len(daily) != observations {
			return nil, fmt.Errorf("%w: %s has %d returns, expected %d", historical.ErrMisaligned, symbol, len(daily), observations)
		}
		observations = len(daily)
		columns[i] = daily
	}

	annualized := make([]float64, n)
	data := mat.NewDense(observations, n, nil)
	for i, daily := range columns {
		avg := formulas.Mean(daily)
		annualized[i] = formulas.AnnualizeReturn(avg, formulas.TradingDaysPerYear)
		if !formulas.IsFinite(annualized[i]) {
			return nil, &StatisticsError{
				Kind:   ErrInvalidStatistics,
				Symbol: symbols[i],
				Index:  i,
				Detail: fmt.Sprintf("non-finite annualized return from mean daily return %v", avg),
			}
		}
		data.SetCol(i, daily)
	}

	corr, err := correlationMatrix(data, symbols)
	if err != nil {
		return nil, err
	}

	return &ReturnStatistics{
		Symbols:           symbols,
		AnnualizedReturns: annualized,
		Correlation:       corr,
		Observations:      observations,
	}, nil
}

// correlationMatrix computes the Pearson correlation of the columns of data.
// A single observation or a constant series leaves correlations undefined and
// is reported as ErrInvalidStatistics.
func correlationMatrix(data *mat.Dense, symbols []string) (*mat.SymDense, error) {
	rows, n := data.Dims()
	if rows < 2 {
		return nil, &StatisticsError{
			Kind:   ErrInvalidStatistics,
			Symbol: symbols[0],
			Index:  0,
			Detail: "correlation needs at least 2 daily returns per asset",
		}
	}

	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, data, nil)

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := corr.At(i, j)
			if !formulas.IsFinite(v) {
				return nil, &StatisticsError{
					Kind:   ErrInvalidStatistics,
					Symbol: symbols[i],
					Index:  i,
					Detail: fmt.Sprintf("non-finite correlation with %s (constant price series?)", symbols[j]),
				}
			}
			switch {
			case i == j:
				v = 1
			case v > 1:
				v = 1
			case v < -1:
				v = -1
			}
			corr.SetSym(i, j, v)
		}
	}

	return &corr, nil
}

// NewReturnStatistics builds statistics from precomputed inputs, validating
// that the correlation matrix is square, symmetric, unit-diagonal, finite and
// within [-1, 1].
func NewReturnStatistics(symbols []string, annualizedReturns []float64, correlation [][]float64) (*ReturnStatistics, error) {
	n := len(symbols)
	if n == 0 {
		return nil, universe.ErrEmptyUniverse
	}
	if len(annualizedReturns) != n {
		return nil, fmt.Errorf("%w: %d annualized returns for %d assets", ErrInvalidStatistics, len(annualizedReturns), n)
	}
	if len(correlation) != n {
		return nil, fmt.Errorf("%w: correlation matrix has %d rows, expected %d", ErrInvalidStatistics, len(correlation), n)
	}

	for i, r := range annualizedReturns {
		if !formulas.IsFinite(r) {
			return nil, &StatisticsError{Kind: ErrInvalidStatistics, Symbol: symbols[i], Index: i, Detail: "non-finite annualized return"}
		}
	}

	corr := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if len(correlation[i]) != n {
			return nil, fmt.Errorf("%w: correlation row %d has %d columns, expected %d", ErrInvalidStatistics, i, len(correlation[i]), n)
		}
		if math.Abs(correlation[i][i]-1) > correlationTolerance {
			return nil, &StatisticsError{Kind: ErrInvalidStatistics, Symbol: symbols[i], Index: i, Detail: fmt.Sprintf("diagonal correlation %v, expected 1", correlation[i][i])}
		}
		for j := 0; j < n; j++ {
			v := correlation[i][j]
			if !formulas.IsFinite(v) || v < -1-correlationTolerance || v > 1+correlationTolerance {
				return nil, &StatisticsError{Kind: ErrInvalidStatistics, Symbol: symbols[i], Index: i, Detail: fmt.Sprintf("correlation with %s is %v", symbols[j], v)}
			}
			if math.Abs(v-correlation[j][i]) > correlationTolerance {
				return nil, &StatisticsError{Kind: ErrInvalidStatistics, Symbol: symbols[i], Index: i, Detail: fmt.Sprintf("correlation with %s is not symmetric", symbols[j])}
			}
		}
		for j := i; j < n; j++ {
			corr.SetSym(i, j, math.Max(-1, math.Min(1, correlation[i][j])))
		}
		corr.SetSym(i, i, 1)
	}

	returns := make([]float64, n)
	copy(returns, annualizedReturns)
	syms := make([]string, n)
	copy(syms, symbols)

	return &ReturnStatistics{
		Symbols:           syms,
		AnnualizedReturns: returns,
		Correlation:       corr,
	}, nil
}
