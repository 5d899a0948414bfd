package portfolio

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/aristath/paperdesk/internal/domain"
)

// NotAvailable is shown instead of a zero or missing price
const NotAvailable = "N/A"

var hundred = decimal.NewFromInt(100)

// DerivePricePerShare is the reference unit price shown before a sell:
// current market value over quantity, or the average purchase price when
// the position holds no shares.
func DerivePricePerShare(p domain.Position) decimal.Decimal {
	if p.Quantity > 0 {
		return p.MarketValue.Div(decimal.NewFromInt(int64(p.Quantity)))
	}
	return p.AveragePrice
}

// DeriveSummaryStatus classifies a gain/loss by its sign
func DeriveSummaryStatus(gainLoss decimal.Decimal) domain.SummaryStatus {
	switch gainLoss.Sign() {
	case 1:
		return domain.SummaryStatusGaining
	case -1:
		return domain.SummaryStatusLosing
	default:
		return domain.SummaryStatusNeutral
	}
}

// ValidateSell reports whether requested shares can be sold from p
func ValidateSell(p domain.Position, requested int) bool {
	return requested > 0 && requested <= p.Quantity
}

// PositionGainLoss is market value minus cost basis
func PositionGainLoss(p domain.Position) decimal.Decimal {
	cost := p.AveragePrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
	return p.MarketValue.Sub(cost)
}

// FormatPrice renders the position's unit price.
// A zero price is a data gap, never "$0.00".
func FormatPrice(p domain.Position) string {
	return FormatAmount(DerivePricePerShare(p))
}

var maxGrouped = decimal.NewFromInt(math.MaxInt64)

// FormatAmount renders a currency amount with two decimals and grouping.
// Amounts that round to zero cents are N/A.
func FormatAmount(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	if rounded.IsZero() {
		return NotAvailable
	}

	whole := rounded.Abs().Truncate(0)
	fixed := rounded.Abs().StringFixed(2)
	cents := fixed[strings.IndexByte(fixed, '.'):]

	var grouped string
	if whole.LessThanOrEqual(maxGrouped) {
		grouped = message.NewPrinter(language.English).Sprintf("%d", whole.IntPart())
	} else {
		grouped = groupThousands(whole.String())
	}

	if rounded.IsNegative() {
		return "-$" + grouped + cents
	}
	return "$" + grouped + cents
}

func groupThousands(digits string) string {
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Summarize derives a summary from the account and its positions. It is
// the fallback when the backend summary cannot be fetched.
func Summarize(account domain.Account, positions []domain.Position) domain.PortfolioSummary {
	invested := decimal.Zero
	shares := 0
	symbols := make(map[string]struct{}, len(positions))
	for _, p := range positions {
		if p.Quantity <= 0 {
			continue
		}
		invested = invested.Add(p.MarketValue)
		shares += p.Quantity
		symbols[p.Symbol] = struct{}{}
	}

	total := account.AvailableBalance.Add(invested)
	gainLoss := total.Sub(account.InitialBalance)
	percentage := decimal.Zero
	if !account.InitialBalance.IsZero() {
		percentage = gainLoss.Div(account.InitialBalance).Mul(hundred).Round(2)
	}

	return domain.PortfolioSummary{
		InitialBalance:   account.InitialBalance,
		AvailableBalance: account.AvailableBalance,
		InvestedValue:    invested,
		TotalValue:       total,
		GainLoss:         gainLoss,
		Percentage:       percentage,
		Status:           DeriveSummaryStatus(gainLoss),
		SymbolCount:      len(symbols),
		TotalShares:      shares,
		Derived:          true,
	}
}
