package infra

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbscan/arbscan/business/blockchain/domain"
	"github.com/arbscan/arbscan/internal/logger"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}

var _ logger.LoggerInterface = nopLogger{}

type stubGas struct {
	gwei int64
	err  error
}

func (s *stubGas) GetGasPrice(_ context.Context) (*domain.GasPrice, error) {
	if s.err != nil {
		return nil, s.err
	}
	wei := new(big.Int).Mul(big.NewInt(s.gwei), big.NewInt(1_000_000_000))
	return domain.NewGasPrice(wei), nil
}

func TestGasPredictor_Predict(t *testing.T) {
	// 50 gwei at 50 gwei/s adds one settlement second; 1000 notional at
	// 0.0001 s/unit adds a tenth.
	p, err := NewGasPredictor(DefaultPredictorConfig(), &stubGas{gwei: 50}, nopLogger{})
	require.NoError(t, err)

	got, err := p.Predict(context.Background(), "binance", decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.InDelta(t, 0.8+1.0+0.1, got, 1e-9)
}

func TestGasPredictor_Predict_UnknownExchangeUsesDefault(t *testing.T) {
	p, err := NewGasPredictor(DefaultPredictorConfig(), &stubGas{gwei: 0}, nopLogger{})
	require.NoError(t, err)

	got, err := p.Predict(context.Background(), "bitfinex", decimal.Zero)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, got, 1e-9)
}

func TestGasPredictor_Predict_GasErrorPropagates(t *testing.T) {
	p, err := NewGasPredictor(DefaultPredictorConfig(), &stubGas{err: fmt.Errorf("rpc down")}, nopLogger{})
	require.NoError(t, err)

	_, err = p.Predict(context.Background(), "binance", decimal.NewFromInt(1000))
	require.Error(t, err)
}

func TestGasPredictor_Predict_ScalesWithGasPrice(t *testing.T) {
	gas := &stubGas{gwei: 100}
	p, err := NewGasPredictor(DefaultPredictorConfig(), gas, nopLogger{})
	require.NoError(t, err)

	busy, err := p.Predict(context.Background(), "kraken", decimal.NewFromInt(1000))
	require.NoError(t, err)

	gas.gwei = 10
	quiet, err := p.Predict(context.Background(), "kraken", decimal.NewFromInt(1000))
	require.NoError(t, err)

	assert.Greater(t, busy, quiet)
}
