package market

import (
	"context"
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// Indicator periods
const (
	SMAPeriod = 20
	RSIPeriod = 14
)

// Analysis summarizes a price history. Indicators that need more points
// than the history has are left nil.
type Analysis struct {
	SMA             *float64 `json:"sma_20,omitempty"`
	RSI             *float64 `json:"rsi_14,omitempty"`
	MeanDailyReturn *float64 `json:"mean_daily_return,omitempty"`
	DailyVolatility *float64 `json:"daily_volatility,omitempty"`
	Symbol          string   `json:"symbol"`
	LastClose       float64  `json:"last_close"`
	PeriodChangePct float64  `json:"period_change_pct"`
	Points          int      `json:"points"`
	Charted         bool     `json:"charted"`
}

// Analyze computes indicators over the symbol's price history
func (s *Service) Analyze(ctx context.Context, symbol string) (*Analysis, error) {
	history, err := s.History(ctx, symbol)
	if err != nil {
		return nil, err
	}

	closes := make([]float64, 0, len(history.Points))
	for _, p := range history.Points {
		closes = append(closes, p.Close.InexactFloat64())
	}

	analysis := Analyze(closes)
	analysis.Symbol = history.Symbol
	analysis.Charted = s.Instrument(history.Symbol).Charted
	return analysis, nil
}

// Analyze computes indicators over closes, oldest first
func Analyze(closes []float64) *Analysis {
	a := &Analysis{Points: len(closes)}
	if len(closes) == 0 {
		return a
	}

	first, last := closes[0], closes[len(closes)-1]
	a.LastClose = last
	if first != 0 {
		a.PeriodChangePct = round((last - first) / first * 100)
	}

	a.SMA = lastValue(closes, SMAPeriod, func(in []float64) []float64 { return talib.Sma(in, SMAPeriod) })
	a.RSI = lastValue(closes, RSIPeriod+1, func(in []float64) []float64 { return talib.Rsi(in, RSIPeriod) })

	returns := dailyReturns(closes)
	if len(returns) >= 2 {
		mean, std := stat.MeanStdDev(returns, nil)
		mean, std = round(mean*100), round(std*100)
		a.MeanDailyReturn = &mean
		a.DailyVolatility = &std
	}
	return a
}

// lastValue runs indicator when closes has at least minPoints and returns
// its final value, or nil when that is NaN or the input is too short.
func lastValue(closes []float64, minPoints int, indicator func([]float64) []float64) *float64 {
	if len(closes) < minPoints {
		return nil
	}
	out := indicator(closes)
	if len(out) == 0 {
		return nil
	}
	v := out[len(out)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	v = round(v)
	return &v
}

// dailyReturns are the simple returns between consecutive closes.
// Pairs starting from a zero close are skipped.
func dailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	return returns
}

func round(v float64) float64 {
	return math.Round(v*10000) / 10000
}
