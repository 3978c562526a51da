package chain

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// rpcFunc computes a dynamic result from the request params.
type rpcFunc func(params []json.RawMessage) interface{}

// rpcMock creates a test HTTP server that answers JSON-RPC calls by method
// name. Values may be static results or rpcFunc. Unknown methods get a
// "method not found" error.
func rpcMock(t *testing.T, responses map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
			ID     json.RawMessage   `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		result, ok := responses[req.Method]
		if !ok {
			json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
				"jsonrpc": "2.0",
				"id":      req.ID,
				"error":   map[string]interface{}{"code": -32601, "message": "method not found"},
			})
			return
		}
		if fn, isFunc := result.(rpcFunc); isFunc {
			result = fn(req.Params)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}))
}

// rpcErrorServer creates a test HTTP server that always returns a JSON-RPC error.
func rpcErrorServer(t *testing.T, code int, msg string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID json.RawMessage `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": code, "message": msg},
		})
	}))
}

func dialMock(t *testing.T, url string, opts ...Option) *EVMClient {
	t.Helper()
	c, err := Dial(context.Background(), url, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

const (
	testTxHash    = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"
	testBlockHash = "0x9b3c1f5a3a1a6b0c6f2e4d8e7a9b0c1d2e3f405162738495a6b7c8d9e0f1a2b3"
)

func minedReceipt(status string) map[string]interface{} {
	return map[string]interface{}{
		"status":          status,
		"blockNumber":     "0x100",
		"blockHash":       testBlockHash,
		"gasUsed":         "0x5208",
		"contractAddress": nil,
	}
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func TestChainID(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_chainId": "0x6c"})
	defer srv.Close()

	id, err := dialMock(t, srv.URL).ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(108), id.Int64())
}

func TestChainIDRPCError(t *testing.T) {
	srv := rpcErrorServer(t, -32000, "node is syncing")
	defer srv.Close()

	_, err := dialMock(t, srv.URL).ChainID(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node is syncing")
}

func TestCodeAtEmpty(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_getCode": "0x"})
	defer srv.Close()

	code, err := dialMock(t, srv.URL).CodeAt(context.Background(), common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.Empty(t, code)
}

func TestCodeAtDeployed(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_getCode": "0x6080604052"})
	defer srv.Close()

	code, err := dialMock(t, srv.URL).CodeAt(context.Background(), common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, code)
}

func TestPendingNonceUsesPendingTag(t *testing.T) {
	var tag string
	srv := rpcMock(t, map[string]interface{}{
		"eth_getTransactionCount": rpcFunc(func(params []json.RawMessage) interface{} {
			json.Unmarshal(params[1], &tag) //nolint:errcheck
			return "0x7"
		}),
	})
	defer srv.Close()

	n, err := dialMock(t, srv.URL).PendingNonce(context.Background(), common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), n)
	assert.Equal(t, "pending", tag)
}

func TestBaseFeeMissing(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_getBlockByNumber": map[string]interface{}{"number": "0x10"},
	})
	defer srv.Close()

	fee, err := dialMock(t, srv.URL).BaseFee(context.Background())
	require.NoError(t, err)
	assert.Nil(t, fee)
}

func TestBaseFeePresent(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_getBlockByNumber": map[string]interface{}{"baseFeePerGas": "0x3b9aca00"},
	})
	defer srv.Close()

	fee, err := dialMock(t, srv.URL).BaseFee(context.Background())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000_000), fee)
}

func TestEstimateGasSendsCallArgs(t *testing.T) {
	var arg map[string]string
	srv := rpcMock(t, map[string]interface{}{
		"eth_estimateGas": rpcFunc(func(params []json.RawMessage) interface{} {
			json.Unmarshal(params[0], &arg) //nolint:errcheck
			return "0x5208"
		}),
	})
	defer srv.Close()

	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	gas, err := dialMock(t, srv.URL).EstimateGas(context.Background(), ethereum.CallMsg{
		From: common.HexToAddress("0x00000000000000000000000000000000000000bb"),
		To:   &to,
		Data: []byte{0xde, 0xad},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(21000), gas)
	assert.Equal(t, "0xdead", arg["data"])
	assert.Equal(t, to.Hex(), common.HexToAddress(arg["to"]).Hex())
	_, hasValue := arg["value"]
	assert.False(t, hasValue, "zero value must not be sent")
}

// ---------------------------------------------------------------------------
// Receipts
// ---------------------------------------------------------------------------

func TestTransactionReceiptSuccess(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": minedReceipt("0x1"),
	})
	defer srv.Close()

	receipt, err := dialMock(t, srv.URL).TransactionReceipt(context.Background(), common.HexToHash(testTxHash))
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, uint64(1), receipt.Status)
	assert.Equal(t, uint64(256), receipt.BlockNumber)
	assert.Equal(t, uint64(21000), receipt.GasUsed)
	assert.Equal(t, common.HexToHash(testBlockHash), receipt.BlockHash)
	assert.Equal(t, common.HexToHash(testTxHash), receipt.TxHash)
	assert.Equal(t, common.Address{}, receipt.ContractAddress)
}

func TestTransactionReceiptPending(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": nil,
	})
	defer srv.Close()

	receipt, err := dialMock(t, srv.URL).TransactionReceipt(context.Background(), common.HexToHash(testTxHash))
	require.NoError(t, err)
	assert.Nil(t, receipt, "pending tx should return nil receipt")
}

func TestTransactionReceiptWithContractAddress(t *testing.T) {
	r := minedReceipt("0x1")
	r["contractAddress"] = "0x5fbdb2315678afecb367f032d93f642f64180aa3"
	srv := rpcMock(t, map[string]interface{}{"eth_getTransactionReceipt": r})
	defer srv.Close()

	receipt, err := dialMock(t, srv.URL).TransactionReceipt(context.Background(), common.HexToHash(testTxHash))
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3"), receipt.ContractAddress)
}

func TestWaitMinedAfterPolling(t *testing.T) {
	var (
		mu    sync.Mutex
		polls int
	)
	srv := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": rpcFunc(func([]json.RawMessage) interface{} {
			mu.Lock()
			defer mu.Unlock()
			polls++
			if polls < 3 {
				return nil
			}
			return minedReceipt("0x1")
		}),
	})
	defer srv.Close()

	c := dialMock(t, srv.URL, WithPollInterval(5*time.Millisecond))
	receipt, err := c.WaitMined(context.Background(), common.HexToHash(testTxHash))
	require.NoError(t, err)
	assert.Equal(t, uint64(256), receipt.BlockNumber)
	assert.Equal(t, 3, polls)
}

func TestWaitMinedReverted(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": minedReceipt("0x0"),
	})
	defer srv.Close()

	receipt, err := dialMock(t, srv.URL).WaitMined(context.Background(), common.HexToHash(testTxHash))
	require.ErrorIs(t, err, ErrTxReverted)
	require.NotNil(t, receipt)
	assert.Equal(t, uint64(0), receipt.Status)
}

func TestWaitMinedTimeout(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": nil,
	})
	defer srv.Close()

	c := dialMock(t, srv.URL,
		WithPollInterval(5*time.Millisecond),
		WithReceiptTimeout(40*time.Millisecond),
	)
	_, err := c.WaitMined(context.Background(), common.HexToHash(testTxHash))
	require.ErrorIs(t, err, ErrReceiptTimeout)
}

func TestWaitMinedCancelled(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": nil,
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := dialMock(t, srv.URL, WithPollInterval(time.Hour))
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := c.WaitMined(ctx, common.HexToHash(testTxHash))
	require.ErrorIs(t, err, context.Canceled)
}

func TestWaitMinedRPCError(t *testing.T) {
	srv := rpcErrorServer(t, -32602, "invalid hash format")
	defer srv.Close()

	_, err := dialMock(t, srv.URL).WaitMined(context.Background(), common.HexToHash(testTxHash))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrReceiptTimeout)
}
