// Package domain contains the core domain types for the pricing context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pair represents a trading pair by symbol (e.g. ETH/USDT).
type Pair struct {
	Base  string
	Quote string
}

// NewPair creates a new trading pair.
func NewPair(base, quote string) Pair {
	return Pair{Base: base, Quote: quote}
}

// String returns the pair in slash notation (e.g. "ETH/USDT").
func (p Pair) String() string {
	return p.Base + "/" + p.Quote
}

// Symbol returns the pair without separator (e.g. "ETHUSDT").
func (p Pair) Symbol() string {
	return p.Base + p.Quote
}

// OracleKey returns the USD reference key used for oracle lookups
// (e.g. "ETH/USD"). Stablecoin quotes are treated as USD.
func (p Pair) OracleKey() string {
	return p.Base + "/USD"
}

// ExchangeQuote is the outcome of a single exchange price fetch.
// A failed fetch carries Err and a zero price.
type ExchangeQuote struct {
	Exchange  string
	Pair      Pair
	Price     decimal.Decimal
	Err       error
	Timestamp time.Time
}

// Success reports whether the fetch produced a usable price.
func (q ExchangeQuote) Success() bool {
	return q.Err == nil
}

// NewExchangeQuote creates a successful quote.
func NewExchangeQuote(exchange string, pair Pair, price decimal.Decimal) ExchangeQuote {
	return ExchangeQuote{
		Exchange:  exchange,
		Pair:      pair,
		Price:     price,
		Timestamp: time.Now(),
	}
}

// NewFailedQuote creates a failed quote carrying the fetch error.
func NewFailedQuote(exchange string, pair Pair, err error) ExchangeQuote {
	return ExchangeQuote{
		Exchange:  exchange,
		Pair:      pair,
		Err:       err,
		Timestamp: time.Now(),
	}
}
