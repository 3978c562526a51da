package config

import "time"

// Defaults applied when neither the .env file nor the environment sets a key.
const (
	DefaultEnvFile      = ".env"
	DefaultArtifactsDir = "artifacts"
	DefaultRecordDir    = "."
	DefaultTxTimeout    = 5 * time.Minute // confirmation wait, deploys included
	DefaultPollInterval = 2 * time.Second // receipt poll
)

// Keys, as spelled in the environment and in .env files.
const (
	KeyPrivateKey   = "PRIVATE_KEY"
	KeyKeyringRef   = "KEYRING_REF"
	KeyRPCURL       = "RPC_URL"
	KeyArtifactsDir = "ARTIFACTS_DIR"
	KeyRecordDir    = "RECORD_DIR"
	KeyTxTimeout    = "TX_TIMEOUT"
	KeyPollInterval = "POLL_INTERVAL"
)
