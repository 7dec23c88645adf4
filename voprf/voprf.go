// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package voprf implements the multiplicative, two-hash-DH Verifiable
// Oblivious Pseudorandom Function: PRF_sk(t) = H_2(t, sk·H_1(t)), with
// H_1 = hash-to-group and H_2 a domain-separated hash-to-bytes. Multiplying
// by a secret blinding scalar r hides H_1(t) from the evaluator; the
// server's proof, verified before unblinding, makes the evaluation
// verifiable.
package voprf

import (
	"errors"

	"github.com/anoncred/voprf/dleq"
	"github.com/anoncred/voprf/group"
)

var (
	// ErrProofInvalid is returned by VerifiableUnblind when the server's
	// DLEQ proof does not verify. The credential is not recoverable after
	// this error: the caller must discard r, blinded and evaluated and
	// restart from Blind.
	ErrProofInvalid = errors.New("voprf: evaluation proof is invalid")

	// ErrIdentityToken is returned by Blind in the negligible case that a
	// token hashes to the group identity.
	ErrIdentityToken = errors.New("voprf: token hashes to the identity element")

	// ErrZeroBlind names the negligible case of a zero blinding scalar.
	// Blind resamples in that case instead of returning this error.
	ErrZeroBlind = errors.New("voprf: sampled blind is zero")

	// ErrNotEvaluated is returned by ClientFinalize if called before
	// VerifiableUnblind has populated the credential's Unblinded field.
	ErrNotEvaluated = errors.New("voprf: credential has not been unblinded yet")
)

// KeyPair is the server's (sk, pk) evaluation key pair.
type KeyPair struct {
	Secret *group.Scalar
	Public *group.Element
}

// Setup samples a fresh server key pair.
func Setup() (*KeyPair, error) {
	sk, err := group.RandomScalar()
	if err != nil {
		return nil, err
	}

	return &KeyPair{Secret: sk, Public: group.BaseMult(sk)}, nil
}

// Credential is the client-local bookkeeping record for one outstanding
// token. Every field but Token and SharedSecret is discarded once Finalize
// succeeds; Zeroize releases the blinding scalar early on any terminal
// failure.
type Credential struct {
	Token        [32]byte
	Blind        *group.Scalar
	Blinded      *group.Element
	Evaluated    *group.Element
	Unblinded    *group.Element
	SharedSecret [64]byte
}

// Zeroize drops the credential's blinding scalar. Call this whenever a
// credential is abandoned, e.g. after ErrProofInvalid.
func (c *Credential) Zeroize() {
	if c.Blind != nil {
		c.Blind.Zeroize()
	}
}

// Blind samples a fresh blinding scalar r and returns a new Credential
// holding token, r, and blinded = r * hash_to_group(token). Resamples
// internally (never returning to the caller) if the sampled r happens to
// be zero; fails only if reading randomness fails or in the negligible case
// that the token itself hashes to the group identity.
func Blind(token [32]byte) (*Credential, error) {
	t := group.HashToGroup(group.DSTHashToGroup, token[:])
	if t.IsIdentity() {
		return nil, ErrIdentityToken
	}

	var r *group.Scalar

	for {
		candidate, err := group.RandomScalar()
		if err != nil {
			return nil, err
		}

		if !candidate.IsZero() {
			r = candidate
			break
		}
	}

	return &Credential{
		Token:   token,
		Blind:   r,
		Blinded: t.ScalarMult(r),
	}, nil
}

// Evaluate computes evaluated = sk * blinded and, if prove is true, a DLEQ
// proof that log_G(pk) == log_blinded(evaluated), i.e. that sk is the
// common exponent. The proof's nonce is freshly random on every call.
func Evaluate(sk *group.Scalar, pk *group.Element, blinded *group.Element, prove bool) (*group.Element, *dleq.Proof, error) {
	evaluated := blinded.ScalarMult(sk)

	if !prove {
		return evaluated, nil, nil
	}

	proof, err := dleq.Prove(sk, group.Base(), pk, blinded, evaluated)
	if err != nil {
		return nil, nil, err
	}

	return evaluated, proof, nil
}

// VerifiableUnblind verifies the server's proof against (G, pk, blinded,
// evaluated) and, on success, sets cred.Unblinded = r^-1 * evaluated, which
// equals sk * hash_to_group(token). On failure it returns ErrProofInvalid
// and leaves cred unmodified.
func VerifiableUnblind(cred *Credential, evaluated *group.Element, proof *dleq.Proof, pk *group.Element) error {
	if !dleq.Verify(group.Base(), pk, cred.Blinded, evaluated, proof) {
		return ErrProofInvalid
	}

	rInv, err := cred.Blind.Invert()
	if err != nil {
		return err
	}

	cred.Evaluated = evaluated
	cred.Unblinded = evaluated.ScalarMult(rInv)

	return nil
}

// ClientFinalize computes the 64-byte shared secret H_2(token || unblinded)
// and stores it on cred. It requires VerifiableUnblind to have run first.
// On success it zeroizes the blind and discards Blinded, Evaluated and
// Unblinded, leaving only Token and SharedSecret.
func ClientFinalize(cred *Credential) ([64]byte, error) {
	if cred.Unblinded == nil {
		return [64]byte{}, ErrNotEvaluated
	}

	unblindedBytes := cred.Unblinded.Bytes()
	cred.SharedSecret = group.HashTranscript(group.DSTVoprfFinalize, cred.Token[:], unblindedBytes[:])

	cred.Zeroize()
	cred.Blinded, cred.Evaluated, cred.Unblinded = nil, nil, nil

	return cred.SharedSecret, nil
}

// ServerFinalize reproduces the full PRF without blinding, directly from the
// server's secret key and the plaintext token. A server comparing this
// against a client-submitted shared secret at redemption time does not need
// to have kept any blinding-related state.
func ServerFinalize(sk *group.Scalar, token [32]byte) [64]byte {
	t := group.HashToGroup(group.DSTHashToGroup, token[:])
	unblinded := t.ScalarMult(sk)
	unblindedBytes := unblinded.Bytes()

	return group.HashTranscript(group.DSTVoprfFinalize, token[:], unblindedBytes[:])
}
