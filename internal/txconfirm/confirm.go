// Package txconfirm submits a transaction and reports its inclusion.
package txconfirm

import (
	"context"
	"fmt"
	"io"

	"github.com/Mohsinsiddi/donation-forwarder/internal/chain"
	"github.com/ethereum/go-ethereum/common"
)

// Handle is a broadcast transaction that can be waited on once.
// *chain.PendingTx implements it.
type Handle interface {
	Hash() common.Hash
	Wait(ctx context.Context) (*chain.Receipt, error)
}

// Confirm calls submit, prints the tx hash, waits for the receipt and prints
// the inclusion summary. A submit error is returned unchanged and nothing is
// waited on. Timeouts and poll intervals belong to the handle.
func Confirm[H Handle](ctx context.Context, out io.Writer, submit func(context.Context) (H, error)) (*chain.Receipt, error) {
	h, err := submit(ctx)
	if err != nil {
		return nil, err
	}
	hash := h.Hash()
	fmt.Fprintf(out, "tx submitted, txHash: %s\n", hash.Hex())

	receipt, err := h.Wait(ctx)
	if err != nil {
		return receipt, err
	}
	fmt.Fprintf(out, "tx mined in blockNumber: %d, status: %d, gasUsed: %d, txHash: %s\n",
		receipt.BlockNumber, receipt.Status, receipt.GasUsed, hash.Hex())
	return receipt, nil
}
