package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/aristath/paperdesk/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed markets.yaml
var defaultMarkets []byte

// Catalogue is the set of markets and instruments offered to users
type Catalogue struct {
	Markets []domain.Market `yaml:"markets"`
}

// LoadCatalogue reads the catalogue from path, or the embedded default when
// path is empty.
func LoadCatalogue(path string) (*Catalogue, error) {
	data := defaultMarkets
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read markets file: %w", err)
		}
		data = raw
	}
	return ParseCatalogue(data)
}

// ParseCatalogue decodes and validates a YAML catalogue
func ParseCatalogue(data []byte) (*Catalogue, error) {
	cat := &Catalogue{}
	if err := yaml.Unmarshal(data, cat); err != nil {
		return nil, fmt.Errorf("failed to parse markets catalogue: %w", err)
	}

	seen := make(map[string]string)
	for mi := range cat.Markets {
		m := &cat.Markets[mi]
		m.Code = strings.ToUpper(strings.TrimSpace(m.Code))
		if m.Code == "" {
			return nil, fmt.Errorf("market %d has no code", mi)
		}
		for ii := range m.Instruments {
			inst := &m.Instruments[ii]
			inst.Symbol = strings.ToUpper(strings.TrimSpace(inst.Symbol))
			if inst.Symbol == "" {
				return nil, fmt.Errorf("market %s: instrument %d has no symbol", m.Code, ii)
			}
			if other, dup := seen[inst.Symbol]; dup {
				return nil, fmt.Errorf("symbol %s listed in both %s and %s", inst.Symbol, other, m.Code)
			}
			seen[inst.Symbol] = m.Code
			if inst.Currency == "" {
				inst.Currency = m.Currency
			}
		}
	}

	return cat, nil
}

// Lookup finds an instrument by symbol
func (c *Catalogue) Lookup(symbol string) (domain.Instrument, string, bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, m := range c.Markets {
		for _, inst := range m.Instruments {
			if inst.Symbol == symbol {
				return inst, m.Code, true
			}
		}
	}
	return domain.Instrument{}, "", false
}

// Market returns the market with the given code
func (c *Catalogue) Market(code string) (domain.Market, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, m := range c.Markets {
		if m.Code == code {
			return m, true
		}
	}
	return domain.Market{}, false
}

// Featured lists the instruments highlighted on the dashboard
func (c *Catalogue) Featured() []domain.Instrument {
	var out []domain.Instrument
	for _, m := range c.Markets {
		for _, inst := range m.Instruments {
			if inst.Featured {
				out = append(out, inst)
			}
		}
	}
	return out
}

// Symbols lists every symbol in catalogue order
func (c *Catalogue) Symbols() []string {
	var out []string
	for _, m := range c.Markets {
		for _, inst := range m.Instruments {
			out = append(out, inst.Symbol)
		}
	}
	return out
}
