// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package main

import (
	"crypto/rand"
	"fmt"
	"os"
	"strings"

	"github.com/anoncred/voprf/kdf"
)

// loadMasterSecret resolves sk_m's input bytes per cfg.masterSecretSource
// and constructs the primary key pair. "generated" produces a fresh
// random seed on every process start and is meant for local development
// only — anything issued before a restart becomes unverifiable afterward.
func loadMasterSecret(cfg *config, rawMode bool) (*kdf.Primary, error) {
	mode := kdf.MasterSecretSeed
	if rawMode {
		mode = kdf.MasterSecretRaw
	}

	var seed []byte

	switch cfg.masterSecretSource {
	case "file":
		if cfg.masterSecretPath == "" {
			return nil, fmt.Errorf("master_secret_source=file requires master_secret_path")
		}

		data, err := os.ReadFile(cfg.masterSecretPath)
		if err != nil {
			return nil, fmt.Errorf("reading master secret file: %w", err)
		}

		seed = []byte(strings.TrimSpace(string(data)))
	case "env":
		val := os.Getenv("ANONCREDD_MASTER_SECRET")
		if val == "" {
			return nil, fmt.Errorf("master_secret_source=env requires ANONCREDD_MASTER_SECRET to be set")
		}

		seed = []byte(val)
	default: // "generated"
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generating master secret: %w", err)
		}

		seed = buf
		fmt.Fprintln(os.Stderr, "anoncredd: generated an ephemeral master secret; credentials will not survive a restart")
	}

	return kdf.NewPrimary(seed, mode)
}
