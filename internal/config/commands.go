package config

import (
	"time"

	"github.com/spf13/pflag"
)

// QuoteConfig holds configuration for the quote and ratio commands.
type QuoteConfig struct {
	Config
	Debounce time.Duration
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return QuoteConfig{}, err
	}
	v.SetDefault("debounce", 300*time.Millisecond)

	return QuoteConfig{
		Config:   baseConfig(v),
		Debounce: v.GetDuration("debounce"),
	}, nil
}

// PositionsConfig holds configuration for position discovery.
type PositionsConfig struct {
	Config
	Owners     []string
	Lookback   uint64
	ChunkSize  uint64
	CursorFile string
	Out        string
	PGDSN      string
}

// LoadPositions merges config file, environment variables, and flags into PositionsConfig.
func LoadPositions(cfgFile string, flags *pflag.FlagSet) (PositionsConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return PositionsConfig{}, err
	}
	v.SetDefault("lookback", uint64(5_000_000))
	v.SetDefault("chunk-size", uint64(50_000))

	return PositionsConfig{
		Config:     baseConfig(v),
		Owners:     getStringSlice(v, "owner"),
		Lookback:   v.GetUint64("lookback"),
		ChunkSize:  v.GetUint64("chunk-size"),
		CursorFile: v.GetString("cursor-file"),
		Out:        v.GetString("out"),
		PGDSN:      v.GetString("pg-dsn"),
	}, nil
}

// TxConfig holds configuration for the transaction commands.
type TxConfig struct {
	Config
	PrivateKey string
	// Owner receives LP tokens and swap output. Defaults to the signer's address.
	Owner    string
	Deadline time.Duration
	DryRun   bool
}

// LoadTx merges config file, environment variables, and flags into TxConfig.
func LoadTx(cfgFile string, flags *pflag.FlagSet) (TxConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return TxConfig{}, err
	}

	return TxConfig{
		Config:     baseConfig(v),
		PrivateKey: v.GetString("private-key"),
		Owner:      v.GetString("owner"),
		Deadline:   v.GetDuration("deadline"),
		DryRun:     v.GetBool("dry-run"),
	}, nil
}
