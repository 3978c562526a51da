package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Mohsinsiddi/donation-forwarder/internal/chain"
	"github.com/Mohsinsiddi/donation-forwarder/internal/deploy"
	"github.com/Mohsinsiddi/donation-forwarder/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

// NewDeployCmd builds the deploy command. The network comes from RPC_URL and
// the deployer from PRIVATE_KEY.
func NewDeployCmd(app *App) *cobra.Command {
	var (
		flags  commonFlags
		reuse  string
		outDir string
	)
	c := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the donation forwarder for the connected network",
		Long: `Deploy DonationForwarderOnEthereum on chain 1 or DonationForwarderOnThunderCore
on chain 108, then record its block and address in chain<id>.yaml.

Other chain ids are reported and skipped. With --reuse the contract at the given
address is checked for code and recorded without sending a transaction.`,
		Version: Version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			var reuseAddr *common.Address
			if reuse != "" {
				addr, err := parseAddress("--reuse address", reuse)
				if err != nil {
					return err
				}
				reuseAddr = &addr
			}

			s, err := app.openSession(cmd.Context(), "", &flags)
			if err != nil {
				return err
			}
			defer s.close()

			recordDir := s.cfg.RecordDir
			if outDir != "" {
				recordDir = outDir
			}
			d := &deploy.Driver{
				Network:      s.client,
				Sender:       s.tx,
				ArtifactsDir: s.cfg.ArtifactsDir,
				RecordDir:    recordDir,
				Reuse:        reuseAddr,
				Out:          cmd.OutOrStdout(),
				Err:          cmd.ErrOrStderr(),
				Log:          s.log,
			}
			res, err := d.Run(cmd.Context())
			if err != nil || res == nil {
				return err
			}
			printDeployment(cmd, res)
			return nil
		},
	}
	flags.register(c)
	c.Flags().StringVar(&reuse, "reuse", "", "record an already deployed contract instead of deploying")
	c.Flags().StringVar(&outDir, "out", "", "directory for chain<id>.yaml (default: $RECORD_DIR or .)")
	return c
}

func printDeployment(cmd *cobra.Command, res *deploy.Result) {
	reg := chain.NewRegistry()
	rec := res.Record.Contract
	pairs := [][2]string{
		{"Contract", string(res.Contract)},
		{"Network", ui.ChainName(reg.Label(rec.ChainID))},
		{"Address", ui.Addr(rec.Address)},
		{"Block", strconv.FormatUint(rec.DeployedBlock, 10)},
		{"Record", res.Path},
	}
	if c, err := reg.GetByChainID(rec.ChainID); err == nil {
		pairs = append(pairs, [2]string{"Explorer", c.AddressURL(rec.Address)})
		if res.TxHash != (common.Hash{}) {
			pairs = append(pairs, [2]string{"Transaction", c.TxURL(res.TxHash.Hex())})
		}
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.KeyValueBlock("Deployment", pairs))
	fmt.Fprintln(out, ui.Success("deployment recorded in "+res.Path))
}

// ExecuteDeploy runs the deploy command for the current process.
func ExecuteDeploy() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app := DefaultApp()
	c := NewDeployCmd(app)
	c.SetOut(app.Stdout)
	c.SetErr(app.Stderr)
	c.SilenceErrors = true
	code := 0
	if err := c.ExecuteContext(ctx); err != nil {
		code = fail(app, err)
	}
	stop()
	os.Exit(code)
}
