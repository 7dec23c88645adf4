// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Command anoncredd is the reference process bootstrap for the anonymous
// credential service: it resolves configuration per §6.4, constructs the
// primary key pair, and serves the four RPC operations of §6.1 over a
// minimal HTTP+JSON transport.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "anoncredd",
	Short: "anoncredd runs the anonymous credential VOPRF service",
	Long: `anoncredd issues and redeems attribute-scoped anonymous
credentials over a verifiable oblivious PRF. The primary key pair is
generated once at process start (or loaded per master_secret_source) and
held immutable for the life of the process.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a config file (yaml/json/toml, read via viper)")
	rootCmd.AddCommand(serveCmd, rotateKeyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
