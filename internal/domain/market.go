package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instrument is one entry of the market catalogue
type Instrument struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Name     string `json:"name" yaml:"name"`
	Exchange string `json:"exchange,omitempty" yaml:"exchange,omitempty"`
	Currency string `json:"currency,omitempty" yaml:"currency,omitempty"`
	Featured bool   `json:"featured,omitempty" yaml:"featured,omitempty"`
	// Charted is false for symbols the chart provider does not cover
	Charted bool `json:"charted" yaml:"charted"`
}

// Market groups the instruments of one country
type Market struct {
	Code        string       `json:"code" yaml:"code"`
	Country     string       `json:"country" yaml:"country"`
	Currency    string       `json:"currency" yaml:"currency"`
	Test        bool         `json:"test,omitempty" yaml:"test,omitempty"`
	Instruments []Instrument `json:"instruments" yaml:"instruments"`
}

// Quote is the latest market snapshot for a symbol
type Quote struct {
	UpdatedAt     time.Time       `json:"updated_at" msgpack:"updated_at"`
	Price         decimal.Decimal `json:"price" msgpack:"price"`
	Change        decimal.Decimal `json:"change" msgpack:"change"`
	ChangePercent decimal.Decimal `json:"change_percent" msgpack:"change_percent"`
	Symbol        string          `json:"symbol" msgpack:"symbol"`
	CompanyName   string          `json:"company_name" msgpack:"company_name"`
	Volume        int64           `json:"volume" msgpack:"volume"`
}

// PricePoint is one daily bar of a price history
type PricePoint struct {
	Date   time.Time       `json:"date" msgpack:"date"`
	Open   decimal.Decimal `json:"open" msgpack:"open"`
	High   decimal.Decimal `json:"high" msgpack:"high"`
	Low    decimal.Decimal `json:"low" msgpack:"low"`
	Close  decimal.Decimal `json:"close" msgpack:"close"`
	Volume int64           `json:"volume" msgpack:"volume"`
}

// PriceHistory is the daily series for a symbol, oldest first
type PriceHistory struct {
	Symbol string       `json:"symbol" msgpack:"symbol"`
	Period string       `json:"period" msgpack:"period"`
	Points []PricePoint `json:"points" msgpack:"points"`
}
