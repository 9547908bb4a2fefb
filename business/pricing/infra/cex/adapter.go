// Package cex implements REST price retrieval across centralized exchanges.
package cex

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/arbscan/arbscan/business/pricing/domain"
	"github.com/arbscan/arbscan/internal/apperror"
)

// Adapter handles the response shape and request signing of one exchange.
type Adapter interface {
	// Name returns the exchange identifier (e.g. "binance").
	Name() string

	// Sign returns the hex HMAC-SHA256 signature over the exchange's
	// canonical payload for the given request timestamp.
	Sign(secret, timestamp string, pair domain.Pair) string

	// ExtractPrice pulls the last price out of a ticker response body.
	ExtractPrice(body []byte) (decimal.Decimal, error)
}

// NewAdapter returns the adapter for the given exchange name. Unknown
// exchanges get the generic adapter, which handles the common
// price/last ticker shapes.
func NewAdapter(name string) Adapter {
	switch name {
	case "binance":
		return binanceAdapter{}
	case "kucoin":
		return kucoinAdapter{}
	case "kraken":
		return krakenAdapter{}
	case "coinbase":
		return coinbaseAdapter{}
	default:
		return genericAdapter{name: name}
	}
}

func hmacSHA256(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// toDecimal converts a JSON value (string or number) to a decimal.
func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case string:
		return decimal.NewFromString(n)
	case json.Number:
		return decimal.NewFromString(n.String())
	case float64:
		return decimal.NewFromFloat(n), nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported price type %T", v)
	}
}

func extractErr(name string, cause error) error {
	return apperror.New(apperror.CodePriceExtractFailed,
		apperror.WithCause(cause),
		apperror.WithContext(fmt.Sprintf("could not extract price from %s response", name)))
}

type binanceAdapter struct{}

func (binanceAdapter) Name() string { return "binance" }

func (binanceAdapter) Sign(secret, timestamp string, pair domain.Pair) string {
	message := fmt.Sprintf("symbol=%s&timestamp=%s", pair.Symbol(), timestamp)
	return hmacSHA256(secret, message)
}

func (a binanceAdapter) ExtractPrice(body []byte) (decimal.Decimal, error) {
	var resp struct {
		Price json.Number `json:"price"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, extractErr(a.Name(), err)
	}
	price, err := decimal.NewFromString(resp.Price.String())
	if err != nil {
		return decimal.Zero, extractErr(a.Name(), err)
	}
	return price, nil
}

type kucoinAdapter struct{}

func (kucoinAdapter) Name() string { return "kucoin" }

func (kucoinAdapter) Sign(secret, timestamp string, pair domain.Pair) string {
	return hmacSHA256(secret, timestamp+pair.String())
}

func (a kucoinAdapter) ExtractPrice(body []byte) (decimal.Decimal, error) {
	var resp struct {
		Data struct {
			Price json.Number `json:"price"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, extractErr(a.Name(), err)
	}
	price, err := decimal.NewFromString(resp.Data.Price.String())
	if err != nil {
		return decimal.Zero, extractErr(a.Name(), err)
	}
	return price, nil
}

type krakenAdapter struct{}

func (krakenAdapter) Name() string { return "kraken" }

func (krakenAdapter) Sign(secret, timestamp string, pair domain.Pair) string {
	return hmacSHA256(secret, timestamp+pair.String())
}

// ExtractPrice reads the ask entry of the first result pair, e.g.
// {"result":{"XXBTZUSD":{"a":["29326.10000","1","1.000"]}}}.
func (a krakenAdapter) ExtractPrice(body []byte) (decimal.Decimal, error) {
	var resp struct {
		Result map[string]struct {
			Ask []json.Number `json:"a"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, extractErr(a.Name(), err)
	}
	for _, entry := range resp.Result {
		if len(entry.Ask) == 0 {
			break
		}
		price, err := decimal.NewFromString(entry.Ask[0].String())
		if err != nil {
			return decimal.Zero, extractErr(a.Name(), err)
		}
		return price, nil
	}
	return decimal.Zero, extractErr(a.Name(), fmt.Errorf("no result pair in response"))
}

type coinbaseAdapter struct{}

func (coinbaseAdapter) Name() string { return "coinbase" }

func (coinbaseAdapter) Sign(secret, timestamp string, pair domain.Pair) string {
	return hmacSHA256(secret, timestamp+pair.String())
}

func (a coinbaseAdapter) ExtractPrice(body []byte) (decimal.Decimal, error) {
	var resp struct {
		Data struct {
			Amount json.Number `json:"amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, extractErr(a.Name(), err)
	}
	price, err := decimal.NewFromString(resp.Data.Amount.String())
	if err != nil {
		return decimal.Zero, extractErr(a.Name(), err)
	}
	return price, nil
}

// genericAdapter handles exchanges without a dedicated adapter by
// probing the common "price" and "last" ticker fields.
type genericAdapter struct {
	name string
}

func (g genericAdapter) Name() string { return g.name }

func (g genericAdapter) Sign(secret, timestamp string, pair domain.Pair) string {
	return hmacSHA256(secret, timestamp+pair.String())
}

func (g genericAdapter) ExtractPrice(body []byte) (decimal.Decimal, error) {
	var resp map[string]any
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, extractErr(g.name, err)
	}
	for _, field := range []string{"price", "last"} {
		if v, ok := resp[field]; ok {
			price, err := toDecimal(v)
			if err != nil {
				return decimal.Zero, extractErr(g.name, err)
			}
			return price, nil
		}
	}
	return decimal.Zero, extractErr(g.name, fmt.Errorf("no price field in response"))
}
