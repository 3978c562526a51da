package deploy

import (
	"bytes"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Record is the content of chain<id>.yaml.
type Record struct {
	Contract ContractRecord `yaml:"contract"`
}

// ContractRecord locates a deployed forwarder. A reused deployment has block
// 0 and an empty block hash.
type ContractRecord struct {
	DeployedBlock     uint64 `yaml:"deployed-blk"`
	DeployedBlockHash string `yaml:"deployed-blk-hash"`
	ChainID           int64  `yaml:"chainId"`
	Address           string `yaml:"address"`
}

// RecordPath returns dir/chain<id>.yaml.
func RecordPath(dir string, chainID *big.Int) string {
	return filepath.Join(dir, fmt.Sprintf("chain%s.yaml", chainID))
}

// WriteRecord writes r to path, replacing any previous record.
func WriteRecord(path string, r *Record) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding deployment record: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding deployment record: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing deployment record: %w", err)
	}
	return nil
}

// ReadRecord loads a record written by WriteRecord.
func ReadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading deployment record: %w", err)
	}
	r := &Record{}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing deployment record %s: %w", path, err)
	}
	return r, nil
}
