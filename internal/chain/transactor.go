package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// DefaultPriorityFee is the tip offered on EIP-1559 chains (1.5 gwei).
var DefaultPriorityFee = big.NewInt(1_500_000_000)

// TxSigner holds the key that authorises transactions.
type TxSigner interface {
	Address() (common.Address, error)
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Transactor builds, signs and broadcasts transactions from one account.
type Transactor struct {
	client *EVMClient
	signer TxSigner
	log    *zap.Logger

	once    sync.Once
	chainID *big.Int
	idErr   error
}

// NewTransactor creates a Transactor that signs with signer and sends through client.
func NewTransactor(client *EVMClient, signer TxSigner) *Transactor {
	return &Transactor{client: client, signer: signer, log: client.log}
}

// From returns the sending account.
func (t *Transactor) From() (common.Address, error) {
	return t.signer.Address()
}

// ChainID returns the chain id transactions are signed for. It is read once.
func (t *Transactor) ChainID(ctx context.Context) (*big.Int, error) {
	t.once.Do(func() {
		t.chainID, t.idErr = t.client.ChainID(ctx)
	})
	return t.chainID, t.idErr
}

// Send signs and broadcasts a transaction calling to with data. A nil to
// creates a contract. The returned PendingTx has not been mined yet.
func (t *Transactor) Send(ctx context.Context, to *common.Address, data []byte, value *big.Int) (*PendingTx, error) {
	from, err := t.signer.Address()
	if err != nil {
		return nil, fmt.Errorf("loading signer: %w", err)
	}
	if value == nil {
		value = new(big.Int)
	}

	chainID, err := t.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	nonce, err := t.client.PendingNonce(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("getting nonce: %w", err)
	}
	gas, err := t.client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: to, Data: data, Value: value})
	if err != nil {
		return nil, fmt.Errorf("estimating gas: %w", err)
	}

	tx, err := t.buildTx(ctx, chainID, nonce, gas, to, value, data)
	if err != nil {
		return nil, err
	}

	signed, err := t.signer.SignTx(tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	t.log.Debug("broadcasting transaction",
		zap.String("from", from.Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gas),
		zap.Uint8("type", signed.Type()),
	)
	hash, err := t.client.SendTransaction(ctx, signed)
	if err != nil {
		return nil, fmt.Errorf("broadcasting transaction: %w", err)
	}

	p := &PendingTx{hash: hash, tx: signed, waiter: t.client}
	if to == nil {
		p.created = crypto.CreateAddress(from, nonce)
	}
	return p, nil
}

// buildTx picks a dynamic-fee transaction when the chain reports a base fee
// and a legacy one otherwise.
func (t *Transactor) buildTx(ctx context.Context, chainID *big.Int, nonce, gas uint64, to *common.Address, value *big.Int, data []byte) (*types.Transaction, error) {
	fees, err := t.client.GetGasInfo(ctx)
	if err != nil {
		return nil, err
	}

	if fees.IsEIP1559() {
		t.log.Debug("using dynamic fee",
			zap.Float64("feeCapGwei", WeiToGwei(fees.FeeCap)),
			zap.Float64("tipGwei", WeiToGwei(fees.TipCap)),
		)
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: fees.TipCap,
			GasFeeCap: fees.FeeCap,
			Gas:       gas,
			To:        to,
			Value:     value,
			Data:      data,
		}), nil
	}

	t.log.Debug("using legacy gas price", zap.Float64("gasPriceGwei", WeiToGwei(fees.GasPrice)))
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: fees.GasPrice,
		Gas:      gas,
		To:       to,
		Value:    value,
		Data:     data,
	}), nil
}

type receiptWaiter interface {
	WaitMined(ctx context.Context, hash common.Hash) (*Receipt, error)
}

// PendingTx is a broadcast transaction that may not be mined yet.
type PendingTx struct {
	hash    common.Hash
	tx      *types.Transaction
	created common.Address
	waiter  receiptWaiter
}

// Hash returns the transaction hash reported by the node.
func (p *PendingTx) Hash() common.Hash { return p.hash }

// Tx returns the signed transaction.
func (p *PendingTx) Tx() *types.Transaction { return p.tx }

// Wait blocks until the transaction is mined. For contract creations the
// receipt's ContractAddress falls back to the address derived from the
// sender and nonce when the node leaves it out.
func (p *PendingTx) Wait(ctx context.Context) (*Receipt, error) {
	receipt, err := p.waiter.WaitMined(ctx, p.hash)
	if receipt != nil && receipt.ContractAddress == (common.Address{}) {
		receipt.ContractAddress = p.created
	}
	return receipt, err
}
