// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anoncred/voprf/kdf"
)

// rotateKeyCmd generates a fresh primary key pair and exits. Rotation is
// never performed in-process: spec §5 treats the running server's primary
// key pair as immutable for its lifetime, so a rotation is a new master
// secret written out-of-band and picked up by the next process start, not
// a mutation of a live kdf.Primary.
var rotateKeyCmd = &cobra.Command{
	Use:   "rotate-key",
	Short: "Generates a fresh master secret and primary public key, then exits",
	Long: `rotate-key generates a new 32-byte master secret seed and prints it,
along with the resulting primary public key, to stdout. It never mutates a
running server's key; every credential derived under the old key stops
being derivable once the new seed is deployed and the server restarted.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		seed := make([]byte, 32)
		if _, err := rand.Read(seed); err != nil {
			return fmt.Errorf("generating master secret: %w", err)
		}

		primary, err := kdf.NewPrimary(seed, kdf.MasterSecretSeed)
		if err != nil {
			return fmt.Errorf("deriving primary key pair: %w", err)
		}

		pk := primary.PublicKey().Bytes()

		fmt.Fprintln(os.Stdout, "master_secret_seed:", hex.EncodeToString(seed))
		fmt.Fprintln(os.Stdout, "primary_public_key:", hex.EncodeToString(pk[:]))

		return nil
	},
}
