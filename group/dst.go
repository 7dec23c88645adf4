// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package group

// Domain-separation tags, fixed for the lifetime of this protocol version.
// Rotating any of these invalidates every outstanding credential (see
// SPEC_FULL.md §6.3); they are enumerated here, in one place, precisely
// because the source this protocol was distilled from left them scattered.
const (
	// DSTHashToGroup separates the token-hashing step of blinding (§4.2) from
	// every other hash-to-group use.
	DSTHashToGroup = "ANONCRED1-HashToGroup"

	// DSTHashToScalar is the default hash-to-scalar tag for call sites that
	// don't have a more specific tag of their own.
	DSTHashToScalar = "ANONCRED1-HashToScalar"

	// DSTDleqChallenge separates the DLEQ Fiat-Shamir challenge hash.
	DSTDleqChallenge = "ANONCRED1-DLEQ-Challenge"

	// DSTKdfDerive separates the SDHI attribute-index derivation hash.
	DSTKdfDerive = "ANONCRED1-KDF-SDHI"

	// DSTVoprfFinalize separates the VOPRF finalize transcript hash.
	DSTVoprfFinalize = "ANONCRED1-VOPRF-Finalize"
)
