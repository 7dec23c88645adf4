// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package dleq implements a non-interactive Fiat-Shamir proof that two
// element pairs (G, Y) and (H, Z) share a discrete logarithm: log_G(Y) ==
// log_H(Z). It is the single primitive both the VOPRF evaluation proof and
// the KDF public-key-binding proof build on.
//
// The proof shape follows the classic single-pair Chaum-Pedersen
// construction (see e.g. drand's dleq package), generalized to the group
// abstraction of the group package and fixed to the transcript order this
// protocol pins down: G, H, Y, Z, A, B.
package dleq

import (
	"crypto/subtle"

	"github.com/anoncred/voprf/group"
)

// Proof is a Fiat-Shamir challenge/response pair witnessing log_G(Y) ==
// log_H(Z).
type Proof struct {
	C *group.Scalar
	S *group.Scalar
}

// Bytes returns the compact 64-byte encoding c‖s.
func (p *Proof) Bytes() [64]byte {
	var out [64]byte

	c := p.C.Bytes()
	s := p.S.Bytes()
	copy(out[:32], c[:])
	copy(out[32:], s[:])

	return out
}

// DecodeProof decodes the compact 64-byte encoding produced by Bytes.
func DecodeProof(data []byte) (*Proof, error) {
	if len(data) != 64 {
		return nil, group.ErrInvalidEncoding
	}

	c, err := group.DecodeScalar(data[:32])
	if err != nil {
		return nil, err
	}

	s, err := group.DecodeScalar(data[32:])
	if err != nil {
		return nil, err
	}

	return &Proof{C: c, S: s}, nil
}

// Prove produces a proof that x is the common discrete log of Y with
// respect to G and of Z with respect to H, i.e. Y = x*G and Z = x*H. The
// caller supplies Y and Z directly; Prove does not recompute or check them.
// It fails only if reading randomness for the nonce fails.
func Prove(x *group.Scalar, g, y, h, z *group.Element) (*Proof, error) {
	k, err := group.RandomScalar()
	if err != nil {
		return nil, err
	}

	a := g.ScalarMult(k)
	b := h.ScalarMult(k)

	c := challenge(g, h, y, z, a, b)
	s := k.Add(c.Mul(x))

	return &Proof{C: c, S: s}, nil
}

// Verify checks that proof witnesses log_G(Y) == log_H(Z). It never panics
// and never branches on secret data; every input here is public.
func Verify(g, y, h, z *group.Element, proof *Proof) bool {
	if proof == nil || proof.C == nil || proof.S == nil {
		return false
	}

	negC := group.NewScalar().Sub(proof.C)

	// A' = s*G - c*Y ; B' = s*H - c*Z
	aPrime := g.ScalarMult(proof.S).Add(y.ScalarMult(negC))
	bPrime := h.ScalarMult(proof.S).Add(z.ScalarMult(negC))

	expected := challenge(g, h, y, z, aPrime, bPrime)

	ec := expected.Bytes()
	pc := proof.C.Bytes()

	return subtle.ConstantTimeCompare(ec[:], pc[:]) == 1
}

// challenge hashes the transcript G‖H‖Y‖Z‖A‖B, in that fixed order, to
// produce the Fiat-Shamir scalar. Reordering these elements silently
// breaks soundness against adaptive adversaries, so the order here is the
// single source of truth for both Prove and Verify.
func challenge(g, h, y, z, a, b *group.Element) *group.Scalar {
	gb, hb, yb, zb, ab, bb := g.Bytes(), h.Bytes(), y.Bytes(), z.Bytes(), a.Bytes(), b.Bytes()

	msg := make([]byte, 0, 6*group.ElementLength)
	msg = append(msg, gb[:]...)
	msg = append(msg, hb[:]...)
	msg = append(msg, yb[:]...)
	msg = append(msg, zb[:]...)
	msg = append(msg, ab[:]...)
	msg = append(msg, bb[:]...)

	return group.HashToScalar(group.DSTDleqChallenge, msg)
}
