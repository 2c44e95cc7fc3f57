package historical

import (
	"math"
	"time"

	"github.com/rs/zerolog"
)

const (
	// Validation thresholds
	maxPriceMultiplier    = 10.0   // Close > 10x trailing average is abnormal
	minPriceMultiplier    = 0.1    // Close < 0.1x trailing average is abnormal
	maxPriceChangePercent = 1000.0 // >1000% day-over-day change is a spike
	minPriceChangePercent = -90.0  // <-90% day-over-day change is a crash
	contextWindowDays     = 30     // Trailing observations used for the average
)

// Anomaly reasons
const (
	ReasonNonFinite    = "non_finite_close"
	ReasonNonPositive  = "non_positive_close"
	ReasonSpike        = "spike_detected"
	ReasonCrash        = "crash_detected"
	ReasonPriceTooHigh = "price_too_high"
	ReasonPriceTooLow  = "price_too_low"
)

// Anomaly is one suspicious close in a series.
type Anomaly struct {
	Symbol string    `json:"symbol"`
	Index  int       `json:"index"`
	Date   time.Time `json:"date,omitempty"`
	Close  float64   `json:"close"`
	Reason string    `json:"reason"`
}

// PriceValidator flags abnormal closes. It never alters a series: a spike in
// the input is reported, and the caller decides whether to run anyway.
type PriceValidator struct {
	log zerolog.Logger
}

// NewPriceValidator creates a new price validator
func NewPriceValidator(log zerolog.Logger) *PriceValidator {
	return &PriceValidator{
		log: log.With().Str("component", "price_validator").Logger(),
	}
}

// ValidateClose checks one close against the closes preceding it (oldest first).
// Returns (isValid, reason).
func (v *PriceValidator) ValidateClose(close float64, previous []float64) (bool, string) {
	if math.IsNaN(close) || math.IsInf(close, 0) {
		return false, ReasonNonFinite
	}
	if close <= 0 {
		return false, ReasonNonPositive
	}
	if len(previous) == 0 {
		return true, ""
	}

	// Day-over-day change takes priority over the average checks
	prevClose := previous[len(previous)-1]
	if prevClose > 0 {
		changePercent := ((close - prevClose) / prevClose) * 100.0
		if changePercent > maxPriceChangePercent {
			return false, ReasonSpike
		}
		if changePercent < minPriceChangePercent {
			return false, ReasonCrash
		}
	}

	window := previous
	if len(window) > contextWindowDays {
		window = window[len(window)-contextWindowDays:]
	}
	var sum float64
	for _, p := range window {
		sum += p
	}
	avgPrice := sum / float64(len(window))

	if close > avgPrice*maxPriceMultiplier {
		return false, ReasonPriceTooHigh
	}
	if close < avgPrice*minPriceMultiplier {
		return false, ReasonPriceTooLow
	}

	return true, ""
}

// Validate scans every series of p and returns its anomalies, ordered by
// symbol then observation.
func (v *PriceValidator) Validate(p *PriceSeries) []Anomaly {
	var anomalies []Anomaly
	dates := p.Dates()

	for _, symbol := range p.Symbols() {
		closes, _ := p.Closes(symbol)
		for i, c := range closes {
			valid, reason := v.ValidateClose(c, closes[:i])
			if valid {
				continue
			}
			a := Anomaly{Symbol: symbol, Index: i, Close: c, Reason: reason}
			if dates != nil {
				a.Date = dates[i]
			}
			anomalies = append(anomalies, a)
		}
	}

	if len(anomalies) > 0 {
		v.log.Warn().
			Int("anomalies", len(anomalies)).
			Str("first_symbol", anomalies[0].Symbol).
			Str("first_reason", anomalies[0].Reason).
			Msg("Abnormal closes in price history")
	}

	return anomalies
}
