package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultAuctionDuration is the fixed auction window in seconds (3 days).
const DefaultAuctionDuration int64 = 3 * 24 * 60 * 60

// Config carries the daemon settings. Minters and TokenAdmins are the
// process-wide capability sets: addresses granted the minting and token
// issuance capabilities at startup.
type Config struct {
	RPCAddress      string   `toml:"RPCAddress"`
	DataDir         string   `toml:"DataDir"`
	AuctionDuration int64    `toml:"AuctionDuration"`
	VaultAddress    string   `toml:"VaultAddress"`
	Minters         []string `toml:"Minters"`
	TokenAdmins     []string `toml:"TokenAdmins"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./marketdata"
	}
	if cfg.AuctionDuration <= 0 {
		cfg.AuctionDuration = DefaultAuctionDuration
	}
	if strings.TrimSpace(cfg.VaultAddress) == "" {
		cfg.VaultAddress = "0x00000000000000000000000000000000000000ff"
	}
	if cfg.Minters == nil {
		cfg.Minters = []string{}
	}
	if cfg.TokenAdmins == nil {
		cfg.TokenAdmins = []string{}
	}
}

// Validate checks the address fields for well-formed hex addresses.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}
	if !common.IsHexAddress(cfg.VaultAddress) {
		return fmt.Errorf("config: VaultAddress %q is not a hex address", cfg.VaultAddress)
	}
	for _, addr := range cfg.Minters {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("config: minter %q is not a hex address", addr)
		}
	}
	for _, addr := range cfg.TokenAdmins {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("config: token admin %q is not a hex address", addr)
		}
	}
	return nil
}

// Vault returns the configured custody vault address.
func (c *Config) Vault() [20]byte {
	return [20]byte(common.HexToAddress(c.VaultAddress))
}

// MinterAddresses returns the parsed minter capability set.
func (c *Config) MinterAddresses() [][20]byte {
	return parseAddresses(c.Minters)
}

// TokenAdminAddresses returns the parsed token admin capability set.
func (c *Config) TokenAdminAddresses() [][20]byte {
	return parseAddresses(c.TokenAdmins)
}

func parseAddresses(raw []string) [][20]byte {
	out := make([][20]byte, 0, len(raw))
	for _, addr := range raw {
		out = append(out, [20]byte(common.HexToAddress(addr)))
	}
	return out
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
