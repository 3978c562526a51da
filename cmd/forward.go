package cmd

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/Mohsinsiddi/donation-forwarder/internal/chain"
	"github.com/Mohsinsiddi/donation-forwarder/internal/contract"
	"github.com/Mohsinsiddi/donation-forwarder/internal/sanity"
	"github.com/Mohsinsiddi/donation-forwarder/internal/txconfirm"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// configInfo is built from the positional arguments of one invocation.
type configInfo struct {
	RPCURL       string
	ContractAddr common.Address
	TokenAddr    common.Address
	Amount       *big.Int
}

func (c configInfo) String() string {
	parts := []string{"rpc-url: " + c.RPCURL, "contract-addr: " + c.ContractAddr.Hex()}
	if c.Amount != nil {
		parts = append(parts, "token-addr: "+c.TokenAddr.Hex(), "amount: "+c.Amount.String())
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid %s %q: not a hex address", field, s)
	}
	return common.HexToAddress(s), nil
}

// parseAmount accepts a base-10 integer or a 0x-prefixed hex integer.
func parseAmount(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 0)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q: want a non-negative integer", s)
	}
	return n, nil
}

func parseTarget(args []string) (configInfo, error) {
	addr, err := parseAddress("contract-addr", args[1])
	if err != nil {
		return configInfo{}, err
	}
	return configInfo{RPCURL: args[0], ContractAddr: addr}, nil
}

type forwardCall func(ctx context.Context, f contract.Forwarder) (*chain.PendingTx, error)

// runForward binds the forwarder, checks it is deployed and confirms call.
func (a *App) runForward(cmd *cobra.Command, flags *commonFlags, info configInfo, name contract.Name, call forwardCall) error {
	ctx := cmd.Context()
	s, err := a.openSession(ctx, info.RPCURL, flags)
	if err != nil {
		return err
	}
	defer s.close()

	path := contract.ArtifactPath(s.cfg.ArtifactsDir, name)
	s.log.Debug("loading artifact", zap.String("path", path))
	art, err := contract.LoadArtifact(path)
	if err != nil {
		return err
	}
	f, err := contract.Bind(name, art, info.ContractAddr, s.tx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "args:", info)
	fmt.Fprintln(out, "contract.addr:", f.Address().Hex())

	if err := sanity.Check(ctx, s.client, f.Address()); err != nil {
		return err
	}
	_, err = txconfirm.Confirm(ctx, out, func(ctx context.Context) (*chain.PendingTx, error) {
		return call(ctx, f)
	})
	return err
}

func (a *App) newTransferToEthereumBridgeCmd() *cobra.Command {
	var flags commonFlags
	c := &cobra.Command{
		Use:   "transfer-to-ethereum-bridge <rpc-url> <contract-addr>",
		Short: "Move the ThunderCore forwarder's funds to the Ethereum bridge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			info, err := parseTarget(args)
			if err != nil {
				return err
			}
			return a.runForward(cmd, &flags, info, contract.ThunderCoreForwarder,
				func(ctx context.Context, f contract.Forwarder) (*chain.PendingTx, error) {
					tc, err := contract.AsThunderCore(f)
					if err != nil {
						return nil, err
					}
					return tc.TransferToEthereumBridge(ctx)
				})
		},
	}
	flags.register(c)
	return c
}

func (a *App) newTransferToUkraineDonationsCmd() *cobra.Command {
	var flags commonFlags
	c := &cobra.Command{
		Use:   "transfer-to-ukraine-donations <rpc-url> <contract-addr> <token-addr> <amount>",
		Short: "Forward an ERC-20 balance from the Ethereum forwarder to the donation address",
		Long: `Forward amount of the ERC-20 token at token-addr from the Ethereum forwarder
to the Ukraine donation address. amount is in the token's smallest unit, as a
decimal or 0x-prefixed hex integer.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			info, err := parseTarget(args)
			if err != nil {
				return err
			}
			if info.TokenAddr, err = parseAddress("token-addr", args[2]); err != nil {
				return err
			}
			if info.Amount, err = parseAmount(args[3]); err != nil {
				return err
			}
			return a.runForward(cmd, &flags, info, contract.EthereumForwarder,
				func(ctx context.Context, f contract.Forwarder) (*chain.PendingTx, error) {
					eth, err := contract.AsEthereum(f)
					if err != nil {
						return nil, err
					}
					return eth.TransferToUkraineDonations(ctx, info.TokenAddr, info.Amount)
				})
		},
	}
	flags.register(c)
	return c
}

func (a *App) newTransferEthToUkraineDonationsCmd() *cobra.Command {
	var flags commonFlags
	c := &cobra.Command{
		Use:   "transfer-eth-to-ukraine-donations <rpc-url> <contract-addr>",
		Short: "Forward the Ethereum forwarder's ETH balance to the donation address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			info, err := parseTarget(args)
			if err != nil {
				return err
			}
			return a.runForward(cmd, &flags, info, contract.EthereumForwarder,
				func(ctx context.Context, f contract.Forwarder) (*chain.PendingTx, error) {
					eth, err := contract.AsEthereum(f)
					if err != nil {
						return nil, err
					}
					return eth.TransferEthToUkraineDonations(ctx)
				})
		},
	}
	flags.register(c)
	return c
}
