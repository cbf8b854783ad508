// Package format turns trading numbers into display strings and derives the
// simple ratios shown on the dashboard.
package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Display classes shared by the templates and the websocket feed.
const (
	ClassProfit  = "profit"
	ClassLoss    = "loss"
	ClassNeutral = "neutral"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// Currency formats value in en-US style, e.g. "$2,847.32" or "-$76.54".
// Unknown ISO codes fall back to USD.
func Currency(value float64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit = currency.USD
	}

	// x/text renders "<symbol> <amount>"; en-US puts the symbol flush and the
	// minus sign in front of it.
	s := printer.Sprint(currency.Symbol(unit.Amount(math.Abs(value))))
	s = strings.Replace(s, " ", "", 1)
	if value < 0 && math.Round(-value*100) > 0 {
		return "-" + s
	}
	return s
}

// USD is Currency with the dashboard's default currency.
func USD(value float64) string {
	return Currency(value, "USD")
}

// Percent formats value with the given number of decimals and a "%" suffix.
func Percent(value float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return fmt.Sprintf("%.*f%%", decimals, value)
}

// Pips formats a pip count with one decimal and an explicit "+" for gains.
func Pips(value float64) string {
	if value > 0 {
		return fmt.Sprintf("+%.1f", value)
	}
	return fmt.Sprintf("%.1f", value)
}

// Price formats a quote with a fixed number of decimals.
func Price(value float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return fmt.Sprintf("%.*f", decimals, value)
}

// WinRate returns wins/(wins+losses) as a percentage, 0 when there are no
// decided trades.
func WinRate(wins, losses int) float64 {
	total := wins + losses
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}

// ProfitFactor returns grossProfit/|grossLoss|, 0 when grossLoss is 0.
func ProfitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		return 0
	}
	return grossProfit / math.Abs(grossLoss)
}

// StatusColor maps a bot or system status to a display class.
func StatusColor(status string) string {
	switch strings.ToLower(status) {
	case "running", "active":
		return ClassProfit
	case "stopped", "inactive":
		return ClassNeutral
	case "error", "failed":
		return ClassLoss
	default:
		return ClassNeutral
	}
}

// ProfitClass maps the sign of a money or pip value to a display class.
func ProfitClass(value float64) string {
	switch {
	case value > 0:
		return ClassProfit
	case value < 0:
		return ClassLoss
	default:
		return ClassNeutral
	}
}

// SumMoney adds values after rounding each one to cents, so a total always
// matches the rows it was built from.
func SumMoney(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v).Round(2))
	}
	f, _ := total.Float64()
	return f
}
