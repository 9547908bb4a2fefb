package ethereum

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/arbscan/arbscan/internal/apperror"
	"github.com/arbscan/arbscan/internal/logger"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}

var _ logger.LoggerInterface = nopLogger{}

const valueABI = `[{"name":"value","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}]`

// uint256 42, ABI-encoded.
const fortyTwoHex = "0x000000000000000000000000000000000000000000000000000000000000002a"

// newRPCServer fakes the two JSON-RPC methods the gateway issues:
// eth_chainId for connection checks and eth_call for contract reads.
func newRPCServer(t *testing.T, callResult string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var result string
		switch req.Method {
		case "eth_chainId":
			result = "0x1"
		case "eth_call":
			result = callResult
		default:
			http.Error(w, "unexpected method "+req.Method, http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encoding rpc response: %v", err)
		}
	}))
}

func newTestGateway(t *testing.T, providers []string) *Gateway {
	t.Helper()

	g, err := NewGateway(GatewayConfig{
		Providers:   providers,
		DialTimeout: 2 * time.Second,
	}, nopLogger{})
	if err != nil {
		t.Fatalf("create gateway: %v", err)
	}
	return g
}

func TestGateway_Connect_FailsOverToNextProvider(t *testing.T) {
	dead := httptest.NewServer(nil)
	dead.Close()

	alive := newRPCServer(t, fortyTwoHex)
	defer alive.Close()

	g := newTestGateway(t, []string{dead.URL, alive.URL})
	if err := g.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer g.Close()

	if g.Endpoint() != alive.URL {
		t.Errorf("expected endpoint %s, got %s", alive.URL, g.Endpoint())
	}
}

func TestGateway_Call_RetriesAfterReconnect(t *testing.T) {
	ctx := context.Background()

	first := newRPCServer(t, fortyTwoHex)
	second := newRPCServer(t, fortyTwoHex)
	defer second.Close()

	g := newTestGateway(t, []string{first.URL, second.URL})
	if err := g.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer g.Close()

	if g.Endpoint() != first.URL {
		t.Fatalf("expected to connect to first provider, got %s", g.Endpoint())
	}

	// Drop the connected provider: the next read must walk the provider
	// list again and answer from the second one.
	first.Close()

	outputs, err := g.Call(ctx, common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), valueABI, "value")
	if err != nil {
		t.Fatalf("call after provider drop: %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("expected 1 output, got %d", len(outputs))
	}

	if g.Endpoint() != second.URL {
		t.Errorf("expected failover to %s, got %s", second.URL, g.Endpoint())
	}
}

func TestGateway_Call_NotConnectedNoProviders(t *testing.T) {
	g := newTestGateway(t, nil)

	_, err := g.Call(context.Background(), common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), valueABI, "value")
	if err == nil {
		t.Fatal("expected error from unconnected gateway")
	}
	if code := apperror.GetCode(err); code != apperror.CodeConnectivityError {
		t.Errorf("expected connectivity error, got %s", code)
	}
}

func TestIsAddress(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"checksummed", "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D", true},
		{"lowercase", "0x7a250d5630b4cf539739df2c5dacb4c659f2488d", true},
		{"no prefix", "7a250d5630B4cF539739dF2C5dAcb4c659F2488D", true},
		{"too short", "0x7a250d", false},
		{"not hex", "0xZZ50d5630B4cF539739dF2C5dAcb4c659F2488D", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAddress(tt.in); got != tt.want {
				t.Errorf("IsAddress(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestToChecksumAddress(t *testing.T) {
	in := "0x7a250d5630b4cf539739df2c5dacb4c659f2488d"
	want := "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"
	if got := ToChecksumAddress(in); got != want {
		t.Errorf("ToChecksumAddress(%s) = %s, want %s", in, got, want)
	}
}

func TestHashABI_DistinguishesABIs(t *testing.T) {
	a := hashABI(`[{"name":"getPair"}]`)
	b := hashABI(`[{"name":"getReserves"}]`)
	if a == b {
		t.Error("different ABI documents must hash differently")
	}
	if a != hashABI(`[{"name":"getPair"}]`) {
		t.Error("hash must be stable for identical input")
	}
}
