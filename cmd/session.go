package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/donation-forwarder/internal/chain"
	"github.com/Mohsinsiddi/donation-forwarder/internal/config"
	"github.com/Mohsinsiddi/donation-forwarder/internal/logging"
	"github.com/Mohsinsiddi/donation-forwarder/internal/wallet"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// commonFlags are accepted by every command.
type commonFlags struct {
	verbose   bool
	artifacts string
}

func (f *commonFlags) register(c *cobra.Command) {
	c.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "debug logging on stderr")
	c.Flags().StringVar(&f.artifacts, "artifacts", "", "Hardhat artifacts directory (default: $ARTIFACTS_DIR or ./artifacts)")
}

// session is a connected client plus the operator's transactor.
type session struct {
	cfg    *config.Config
	log    *zap.Logger
	client *chain.EVMClient
	tx     *chain.Transactor
}

// openSession loads configuration and the credential, then dials rpcURL.
// An empty rpcURL falls back to RPC_URL.
func (a *App) openSession(ctx context.Context, rpcURL string, flags *commonFlags) (*session, error) {
	cfg, err := config.Load(a.EnvFile)
	if err != nil {
		return nil, err
	}
	log := logging.New(a.Stderr, flags.verbose)
	if src := cfg.Source(); src != "" {
		log.Debug("loaded environment file", zap.String("path", src))
	}
	if flags.artifacts != "" {
		cfg.ArtifactsDir = flags.artifacts
	}
	if rpcURL == "" {
		rpcURL = cfg.RPCURL
	}
	if rpcURL == "" {
		return nil, fmt.Errorf("no RPC endpoint: set %s", config.KeyRPCURL)
	}

	key, err := wallet.ResolveKey(cfg.PrivateKey, cfg.KeyringRef, a.OpenKeystore)
	if err != nil {
		return nil, fmt.Errorf("loading credential: %w", err)
	}

	client, err := chain.Dial(ctx, rpcURL,
		chain.WithPollInterval(cfg.PollInterval),
		chain.WithReceiptTimeout(cfg.TxTimeout),
		chain.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:    cfg,
		log:    log,
		client: client,
		tx:     chain.NewTransactor(client, wallet.NewSigner(key)),
	}, nil
}

func (s *session) close() {
	s.client.Close()
	s.log.Sync() //nolint:errcheck
}
