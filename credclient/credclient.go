// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package credclient drives the client side of the anonymous credential
// protocol: the blind/evaluate/unblind/finalize/redeem state machine of
// spec §4.2, built on top of any service.Handler. The original Thrift
// service only ever specified the server side of this exchange; this
// package is the client driver that was left to callers.
package credclient

import (
	"context"
	"errors"

	"github.com/anoncred/voprf/dleq"
	"github.com/anoncred/voprf/group"
	"github.com/anoncred/voprf/kdf"
	"github.com/anoncred/voprf/service"
	"github.com/anoncred/voprf/voprf"
)

// State identifies where a Session sits in the per-credential state
// machine. Transitions are forward, with one exception: a failed proof
// check in Unblind discards the credential and returns the session to
// StateInit.
type State int

const (
	// StateInit is the state immediately after NewSession: no token chosen
	// yet.
	StateInit State = iota
	// StateBlinded follows Blind: a token and blinding factor are fixed.
	StateBlinded
	// StateEvaluated names the state in which the server has signed the
	// blinded point but the proof is unchecked. Session never enters it:
	// Unblind moves straight from StateBlinded to StateUnblinded.
	StateEvaluated
	// StateUnblinded follows Unblind: the shared secret is ready.
	StateUnblinded
	// StateRedeemable is a convenience alias for StateUnblinded, matching
	// spec §4.2's terminal state name.
	StateRedeemable = StateUnblinded
)

// ErrWrongState is returned by every Session method when called out of
// sequence.
var ErrWrongState = errors.New("credclient: session is not in the required state")

// Session drives one credential issuance/redemption from the client side.
// Once a Session reaches StateUnblinded it accepts no further Blind; start
// a fresh one for the next token. After a failed proof check it is back in
// StateInit and Blind may be called again.
type Session struct {
	state      State
	attributes [][]byte
	pkA        *group.Element
	cred       *voprf.Credential
}

// NewSession starts a fresh session for the given attribute list. pkA is
// the per-attribute public key the client has already obtained and
// verified via GetPublicKeyAndProof (kept separate from Blind so a client
// may cache pkA across many tokens under the same attributes).
func NewSession(attributes [][]byte, pkA *group.Element) *Session {
	return &Session{state: StateInit, attributes: attributes, pkA: pkA}
}

// State reports the session's current state.
func (s *Session) State() State {
	return s.state
}

// Blind samples a fresh blinding factor for token and advances to
// StateBlinded.
func (s *Session) Blind(token [32]byte) error {
	if s.state != StateInit {
		return ErrWrongState
	}

	cred, err := voprf.Blind(token)
	if err != nil {
		return err
	}

	s.cred = cred
	s.state = StateBlinded

	return nil
}

// Blinded returns the 32-byte encoding of the blinded point to send to
// signCredential. It requires StateBlinded.
func (s *Session) Blinded() ([32]byte, error) {
	if s.state != StateBlinded {
		return [32]byte{}, ErrWrongState
	}

	return s.cred.Blinded.Bytes(), nil
}

// Unblind consumes the server's evaluated point and proof, verifies the
// proof against pkA, and — on success — advances straight to
// StateUnblinded, computing the shared secret in the same step (spec §4.2
// folds evaluate/unblind/finalize into one logical transition from the
// caller's perspective once the wire round trip completes).
func (s *Session) Unblind(evaluated [32]byte, proof [64]byte) ([64]byte, error) {
	if s.state != StateBlinded {
		return [64]byte{}, ErrWrongState
	}

	evaluatedElement, err := group.DecodeElement(evaluated[:])
	if err != nil {
		return [64]byte{}, err
	}

	decodedProof, err := dleq.DecodeProof(proof[:])
	if err != nil {
		return [64]byte{}, err
	}

	if err := voprf.VerifiableUnblind(s.cred, evaluatedElement, decodedProof, s.pkA); err != nil {
		s.cred.Zeroize()
		s.state = StateInit

		return [64]byte{}, err
	}

	secret, err := voprf.ClientFinalize(s.cred)
	if err != nil {
		return [64]byte{}, err
	}

	s.state = StateUnblinded

	return secret, nil
}

// Token returns the session's plaintext token, valid once Blind has run.
func (s *Session) Token() ([32]byte, error) {
	if s.state < StateBlinded {
		return [32]byte{}, ErrWrongState
	}

	return s.cred.Token, nil
}

// SharedSecret returns the finalized shared secret, valid once Unblind has
// succeeded.
func (s *Session) SharedSecret() ([64]byte, error) {
	if s.state != StateUnblinded {
		return [64]byte{}, ErrWrongState
	}

	return s.cred.SharedSecret, nil
}

// RunAgainstHandler drives a full session directly against an in-process
// service.Handler, for tests and single-process demos where the RPC layer
// is not the point. It returns the finalized shared secret on success.
func RunAgainstHandler(ctx context.Context, h service.Handler, caller *service.AuthenticatedCaller, attributes [][]byte, token [32]byte) ([64]byte, error) {
	pkABytes, proofBytes, err := h.GetPublicKeyAndProof(ctx, attributes)
	if err != nil {
		return [64]byte{}, err
	}

	pkA, err := group.DecodeElement(pkABytes[:])
	if err != nil {
		return [64]byte{}, err
	}

	pkM := h.GetPrimaryPublicKey(ctx)
	pkMElement, err := group.DecodeElement(pkM[:])
	if err != nil {
		return [64]byte{}, err
	}

	derivedProof, err := dleq.DecodeProof(proofBytes[:])
	if err != nil {
		return [64]byte{}, err
	}

	if !kdf.VerifyPublicKey(pkMElement, pkA, attributes, derivedProof) {
		return [64]byte{}, ErrKeyBindingInvalid
	}

	session := NewSession(attributes, pkA)
	if err := session.Blind(token); err != nil {
		return [64]byte{}, err
	}

	blinded, err := session.Blinded()
	if err != nil {
		return [64]byte{}, err
	}

	evaluated, evalProof, err := h.SignCredential(ctx, caller, blinded, attributes)
	if err != nil {
		return [64]byte{}, err
	}

	secret, err := session.Unblind(evaluated, evalProof)
	if err != nil {
		return [64]byte{}, err
	}

	if err := h.RedeemCredential(ctx, token, secret, attributes); err != nil {
		return [64]byte{}, err
	}

	return secret, nil
}

// ErrKeyBindingInvalid is returned when the server's public-key-and-proof
// response does not verifiably bind to the primary public key — the
// client-side half of S4's "client aborts."
var ErrKeyBindingInvalid = errors.New("credclient: pk_a does not verifiably bind to pk_m")
