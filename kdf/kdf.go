// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package kdf implements the SDHI (Strong-DH-based Inversion) per-attribute
// key-derivation function: given a primary key pair and an ordered list of
// attribute byte strings, it derives a per-attribute key pair plus a DLEQ
// proof tying the derived public key back to the primary public key.
package kdf

import (
	"encoding/binary"
	"errors"

	"github.com/anoncred/voprf/dleq"
	"github.com/anoncred/voprf/group"
)

var (
	// ErrNoAttributes is returned when deriving a key pair from an empty
	// attribute list.
	ErrNoAttributes = errors.New("kdf: attribute list is empty")

	// ErrDerivationFailure is returned in the cryptographically negligible
	// case that the attribute index hashes to the zero scalar.
	ErrDerivationFailure = errors.New("kdf: attribute index hashed to zero")
)

// MasterSecretMode governs how NewPrimary interprets the bytes it is given,
// mirroring the source's acceptance of either a raw scalar or a longer seed
// (SPEC_FULL.md §4.3, "master_is_raw").
type MasterSecretMode int

const (
	// MasterSecretSeed derives sk_m via HashToScalar from an arbitrary-length
	// seed. This is the default: it accepts any seed of reasonable entropy,
	// not just an already-canonical scalar.
	MasterSecretSeed MasterSecretMode = iota

	// MasterSecretRaw decodes the given bytes directly as a canonical
	// 32-byte scalar.
	MasterSecretRaw
)

// Primary is the server's long-lived master key pair. It is created once at
// process start and never mutated afterwards.
type Primary struct {
	secret *group.Scalar
	public *group.Element
}

// NewPrimary derives the primary key pair from masterSecret according to
// mode.
func NewPrimary(masterSecret []byte, mode MasterSecretMode) (*Primary, error) {
	var sk *group.Scalar

	switch mode {
	case MasterSecretRaw:
		decoded, err := group.DecodeScalar(masterSecret)
		if err != nil {
			return nil, err
		}

		sk = decoded
	default:
		sk = group.HashToScalar(group.DSTHashToScalar, masterSecret)
	}

	if sk.IsZero() {
		return nil, ErrDerivationFailure
	}

	return &Primary{secret: sk, public: group.BaseMult(sk)}, nil
}

// PublicKey returns the primary public key pk_m.
func (p *Primary) PublicKey() *group.Element {
	return p.public
}

// Zeroize drops the primary secret scalar. It should only be called once the
// server process no longer needs to issue or derive credentials.
func (p *Primary) Zeroize() {
	p.secret.Zeroize()
}

// DerivedKey is a per-attribute key pair plus the proof binding its public
// key to the primary public key.
type DerivedKey struct {
	Secret *group.Scalar
	Public *group.Element
	Proof  *dleq.Proof
}

// Zeroize drops the derived secret scalar.
func (d *DerivedKey) Zeroize() {
	d.Secret.Zeroize()
}

// DeriveKeyPair derives sk_a = sk_m / x, pk_a = sk_a*G, where x is the
// attribute-indexed scalar, and a DLEQ proof over (G, pk_a, x*G, pk_m)
// witnessed by sk_a. derive_key_pair is deterministic in (sk_m, attributes);
// only the proof's nonce is fresh on every call.
func (p *Primary) DeriveKeyPair(attributes [][]byte) (*DerivedKey, error) {
	if len(attributes) == 0 {
		return nil, ErrNoAttributes
	}

	x := attributeScalar(attributes)
	if x.IsZero() {
		return nil, ErrDerivationFailure
	}

	xInv, err := x.Invert()
	if err != nil {
		return nil, ErrDerivationFailure
	}

	skA := p.secret.Mul(xInv)
	pkA := group.BaseMult(skA)
	xG := group.BaseMult(x)

	proof, err := dleq.Prove(skA, group.Base(), pkA, xG, p.public)
	if err != nil {
		return nil, err
	}

	return &DerivedKey{Secret: skA, Public: pkA, Proof: proof}, nil
}

// VerifyPublicKey recomputes x from attributes and checks the DLEQ proof
// binding pkA to pkM. Any failure, including a malformed proof, yields
// false; this function never returns an error.
func VerifyPublicKey(pkM, pkA *group.Element, attributes [][]byte, proof *dleq.Proof) bool {
	if len(attributes) == 0 {
		return false
	}

	x := attributeScalar(attributes)
	if x.IsZero() {
		return false
	}

	xG := group.BaseMult(x)

	return dleq.Verify(group.Base(), pkA, xG, pkM, proof)
}

// attributeScalar hashes a length-prefixed, ordered concatenation of the
// attribute strings to a scalar x, preventing concatenation ambiguity
// between e.g. ["ab", "c"] and ["a", "bc"].
func attributeScalar(attributes [][]byte) *group.Scalar {
	msg := make([]byte, 0, 64*len(attributes))

	for _, a := range attributes {
		var lenPrefix [4]byte
		binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(a)))
		msg = append(msg, lenPrefix[:]...)
		msg = append(msg, a...)
	}

	return group.HashToScalar(group.DSTKdfDerive, msg)
}
