package config

import (
	"encoding/hex"
	"os"

	"github.com/BurntSushi/toml"

	"versemarket/crypto"
)

// Config holds the bootstrap knobs a process needs before it can even open
// its state store: where to persist data, where the admin CLI listens, the
// slot the deployment was genesised at, and the authority key permitted to
// reset the circuit breaker and mutate GlobalConfig outside the emergency
// window. Business-rule parameters (leverage tiers, safety gates, breaker
// thresholds) live in Global, loaded separately and validated by
// ValidateConfig.
type Config struct {
	AdminListenAddress string `toml:"AdminListenAddress"`
	DataDir            string `toml:"DataDir"`
	GenesisSlot        uint64 `toml:"GenesisSlot"`
	AuthorityKey       string `toml:"AuthorityKey"`
	GlobalConfigPath   string `toml:"GlobalConfigPath"`
}

// Load reads the bootstrap config at path, creating one with a freshly
// generated authority key if none exists. An existing file missing its
// AuthorityKey is completed and rewritten in place, mirroring how a
// validator key is provisioned on first boot.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if cfg.AuthorityKey == "" {
		key, err := crypto.GeneratePrivateKey()
		if err != nil {
			return nil, err
		}
		cfg.AuthorityKey = hex.EncodeToString(key.Bytes())

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, os.ModePerm)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// createDefault creates and persists a default bootstrap configuration.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AdminListenAddress: ":8090",
		DataDir:            "./versemarket-data",
		GenesisSlot:        0,
		AuthorityKey:       hex.EncodeToString(key.Bytes()),
		GlobalConfigPath:   "./global.toml",
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

// LoadGlobal reads the business-rule parameter file at path, normalising
// defaults and validating the result. A missing file yields the canonical
// defaults rather than an error, so a fresh deployment can boot without
// hand-authoring every tier and threshold.
func LoadGlobal(path string) (Global, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return defaultGlobal(), nil
	}
	var g Global
	if _, err := toml.DecodeFile(path, &g); err != nil {
		return Global{}, err
	}
	g = g.Normalise()
	if err := ValidateConfig(g); err != nil {
		return Global{}, err
	}
	return g, nil
}
