// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package main

import (
	"fmt"

	"github.com/spf13/viper"
)

// config holds the resolved values of §6.4's recognized options. curve,
// voprfBlinding and kdfName are validated against the single member each
// family has in this build; they exist so operator-facing config files
// are self-documenting and forward-compatible, even though choosing any
// other value is rejected at startup.
type config struct {
	curve              string
	voprfBlinding      string
	kdfName            string
	listenAddress      string
	masterSecretSource string
	masterSecretPath   string
	ledgerBackend      string
	redisAddr          string
}

func loadConfig() (*config, error) {
	viper.SetDefault("curve", "ristretto255")
	viper.SetDefault("voprf_blinding", "multiplicative")
	viper.SetDefault("kdf", "sdhi")
	viper.SetDefault("listen_address", "127.0.0.1:8443")
	viper.SetDefault("master_secret_source", "generated")
	viper.SetDefault("master_secret_path", "")
	viper.SetDefault("ledger", "memory")
	viper.SetDefault("redis_addr", "localhost:6379")

	viper.SetEnvPrefix("anoncredd")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &config{
		curve:              viper.GetString("curve"),
		voprfBlinding:      viper.GetString("voprf_blinding"),
		kdfName:            viper.GetString("kdf"),
		listenAddress:      viper.GetString("listen_address"),
		masterSecretSource: viper.GetString("master_secret_source"),
		masterSecretPath:   viper.GetString("master_secret_path"),
		ledgerBackend:      viper.GetString("ledger"),
		redisAddr:          viper.GetString("redis_addr"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *config) validate() error {
	if c.curve != "ristretto255" {
		return fmt.Errorf("unsupported curve %q: this build only implements ristretto255", c.curve)
	}

	if c.voprfBlinding != "multiplicative" {
		return fmt.Errorf("unsupported voprf_blinding %q: this build only implements multiplicative blinding", c.voprfBlinding)
	}

	if c.kdfName != "sdhi" {
		return fmt.Errorf("unsupported kdf %q: this build only implements sdhi", c.kdfName)
	}

	switch c.masterSecretSource {
	case "file", "env", "generated":
	default:
		return fmt.Errorf("unsupported master_secret_source %q: must be file, env or generated", c.masterSecretSource)
	}

	switch c.ledgerBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported ledger %q: must be memory or redis", c.ledgerBackend)
	}

	return nil
}
