package fixtures

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	gasEstimate = 100_000
	gasPrice    = 1_000_000_000
)

// Node is an in-memory JSON-RPC endpoint that mines every transaction it
// receives immediately.
type Node struct {
	srv     *httptest.Server
	chainID *big.Int

	mu          sync.Mutex
	baseFee     *big.Int
	status      uint64
	omitCreated bool
	code        map[common.Address][]byte
	nonces      map[common.Address]uint64
	failures    map[string]string
	calls       map[string]int
	sent        []*types.Transaction
	mined       map[common.Hash]minedTx
	height      uint64
}

type minedTx struct {
	tx      *types.Transaction
	block   uint64
	created *common.Address
}

// NewNode starts a node reporting chainID. It is closed with the test.
func NewNode(t *testing.T, chainID int64) *Node {
	t.Helper()
	n := &Node{
		chainID:  big.NewInt(chainID),
		status:   types.ReceiptStatusSuccessful,
		code:     make(map[common.Address][]byte),
		nonces:   make(map[common.Address]uint64),
		failures: make(map[string]string),
		calls:    make(map[string]int),
		mined:    make(map[common.Hash]minedTx),
		height:   41,
	}
	n.srv = httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(n.srv.Close)
	return n
}

// URL returns the endpoint address.
func (n *Node) URL() string { return n.srv.URL }

// SetCode installs runtime code at addr.
func (n *Node) SetCode(addr common.Address, code []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.code[addr] = code
}

// SetBaseFee makes the latest block report fee as baseFeePerGas.
func (n *Node) SetBaseFee(fee *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.baseFee = fee
}

// Revert makes every later transaction mine with status 0.
func (n *Node) Revert() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.status = types.ReceiptStatusFailed
}

// OmitContractAddress leaves contractAddress null in creation receipts.
func (n *Node) OmitContractAddress() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.omitCreated = true
}

// Fail makes method answer with a JSON-RPC error carrying msg.
func (n *Node) Fail(method, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures[method] = msg
}

// Calls returns how often method was called.
func (n *Node) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

// Sent returns the raw transactions received so far.
func (n *Node) Sent() []*types.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*types.Transaction(nil), n.sent...)
}

// BlockHash returns the hash the node reports for block number.
func BlockHash(number uint64) common.Hash {
	return crypto.Keccak256Hash(new(big.Int).SetUint64(number).Bytes())
}

type request struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     json.RawMessage   `json:"id"`
}

func (n *Node) serve(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.calls[req.Method]++
	msg, failing := n.failures[req.Method]
	var (
		result interface{}
		rpcErr string
	)
	if failing {
		rpcErr = msg
	} else {
		result, rpcErr = n.answer(req)
	}
	n.mu.Unlock()

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != "" {
		resp["error"] = map[string]interface{}{"code": -32000, "message": rpcErr}
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

// answer runs with n.mu held.
func (n *Node) answer(req request) (interface{}, string) {
	switch req.Method {
	case "eth_chainId":
		return (*hexutil.Big)(n.chainID), ""
	case "eth_getCode":
		var addr common.Address
		if err := param(req, 0, &addr); err != nil {
			return nil, err.Error()
		}
		return hexutil.Bytes(n.code[addr]), ""
	case "eth_getTransactionCount":
		var addr common.Address
		if err := param(req, 0, &addr); err != nil {
			return nil, err.Error()
		}
		return hexutil.Uint64(n.nonces[addr]), ""
	case "eth_gasPrice":
		return (*hexutil.Big)(big.NewInt(gasPrice)), ""
	case "eth_getBlockByNumber":
		block := map[string]interface{}{"number": hexutil.Uint64(n.height)}
		if n.baseFee != nil {
			block["baseFeePerGas"] = (*hexutil.Big)(n.baseFee)
		}
		return block, ""
	case "eth_estimateGas":
		return hexutil.Uint64(gasEstimate), ""
	case "eth_sendRawTransaction":
		return n.mine(req)
	case "eth_getTransactionReceipt":
		var hash common.Hash
		if err := param(req, 0, &hash); err != nil {
			return nil, err.Error()
		}
		m, ok := n.mined[hash]
		if !ok {
			return nil, ""
		}
		receipt := map[string]interface{}{
			"transactionHash": hash,
			"status":          hexutil.Uint64(n.status),
			"blockNumber":     hexutil.Uint64(m.block),
			"blockHash":       BlockHash(m.block),
			"gasUsed":         hexutil.Uint64(m.tx.Gas() / 2),
			"contractAddress": nil,
		}
		if m.created != nil && !n.omitCreated {
			receipt["contractAddress"] = m.created
		}
		return receipt, ""
	}
	return nil, "the method " + req.Method + " does not exist/is not available"
}

func (n *Node) mine(req request) (interface{}, string) {
	var raw hexutil.Bytes
	if err := param(req, 0, &raw); err != nil {
		return nil, err.Error()
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, "rlp: " + err.Error()
	}
	from, err := types.Sender(types.LatestSignerForChainID(n.chainID), tx)
	if err != nil {
		return nil, "invalid sender: " + err.Error()
	}

	n.height++
	m := minedTx{tx: tx, block: n.height}
	if tx.To() == nil && n.status == types.ReceiptStatusSuccessful {
		addr := crypto.CreateAddress(from, tx.Nonce())
		m.created = &addr
		n.code[addr] = DeployedCode
	}
	n.nonces[from] = tx.Nonce() + 1
	n.sent = append(n.sent, tx)
	n.mined[tx.Hash()] = m
	return tx.Hash(), ""
}

func param(req request, i int, v interface{}) error {
	if i >= len(req.Params) {
		return errMissingParam
	}
	return json.Unmarshal(req.Params[i], v)
}

type paramError string

func (e paramError) Error() string { return string(e) }

const errMissingParam = paramError("missing value for required argument")
