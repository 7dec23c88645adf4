// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package credclient_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anoncred/voprf/credclient"
	"github.com/anoncred/voprf/group"
	"github.com/anoncred/voprf/kdf"
	"github.com/anoncred/voprf/service"
)

func testService(t *testing.T) *service.CredentialService {
	t.Helper()

	primary, err := kdf.NewPrimary([]byte("test-master"), kdf.MasterSecretSeed)
	require.NoError(t, err)

	return service.NewCredentialService(primary)
}

// token returns the literal S1 token value 0x00...01.
func token() [32]byte {
	var t [32]byte
	t[31] = 1

	return t
}

// TestScenarioS1HappyPath mirrors spec §8's S1 end to end through
// credclient and service.
func TestScenarioS1HappyPath(t *testing.T) {
	svc := testService(t)
	attrs := [][]byte{[]byte("app:demo"), []byte("2024-01")}
	caller := &service.AuthenticatedCaller{ID: "test-caller"}

	secret, err := credclient.RunAgainstHandler(context.Background(), svc, caller, attrs, token())
	require.NoError(t, err)
	assert.NotEqual(t, [64]byte{}, secret)
}

// TestScenarioS3WrongAttributesAtRedeem mirrors S3: redemption with a
// different attribute list than issuance must fail with SecretMismatch.
func TestScenarioS3WrongAttributesAtRedeem(t *testing.T) {
	svc := testService(t)
	issueAttrs := [][]byte{[]byte("app:demo"), []byte("2024-01")}
	redeemAttrs := [][]byte{[]byte("app:demo"), []byte("2024-02")}
	caller := &service.AuthenticatedCaller{ID: "test-caller"}

	ctx := context.Background()
	tok := token()

	pkABytes, _, err := svc.GetPublicKeyAndProof(ctx, issueAttrs)
	require.NoError(t, err)

	pkA, err := group.DecodeElement(pkABytes[:])
	require.NoError(t, err)

	session := credclient.NewSession(issueAttrs, pkA)
	require.NoError(t, session.Blind(tok))

	blinded, err := session.Blinded()
	require.NoError(t, err)

	evaluated, proof, err := svc.SignCredential(ctx, caller, blinded, issueAttrs)
	require.NoError(t, err)

	secret, err := session.Unblind(evaluated, proof)
	require.NoError(t, err)

	err = svc.RedeemCredential(ctx, tok, secret, redeemAttrs)
	require.Error(t, err)

	svcErr, ok := err.(*service.Error)
	require.True(t, ok)
	assert.Equal(t, service.CodeSecretMismatch, svcErr.Code)
}

// TestSessionRejectsOutOfOrderCalls exercises the state machine's
// invariant that each method requires a specific prior state.
func TestSessionRejectsOutOfOrderCalls(t *testing.T) {
	pkA := group.Base()
	session := credclient.NewSession([][]byte{[]byte("a")}, pkA)

	_, err := session.Blinded()
	assert.ErrorIs(t, err, credclient.ErrWrongState)

	_, err = session.Unblind([32]byte{}, [64]byte{})
	assert.ErrorIs(t, err, credclient.ErrWrongState)

	require.NoError(t, session.Blind(token()))
	err = session.Blind(token())
	assert.ErrorIs(t, err, credclient.ErrWrongState)
}

// spliceHandler wraps a real service.Handler but substitutes the public
// key and proof it returns, simulating a malicious or buggy server that
// presents a pk_a not actually derived from its own pk_m.
type spliceHandler struct {
	service.Handler
	pk    [32]byte
	proof [64]byte
}

func (s *spliceHandler) GetPublicKeyAndProof(_ context.Context, _ [][]byte) ([32]byte, [64]byte, error) {
	return s.pk, s.proof, nil
}

// TestKeyBindingRejectsForgedProof mirrors S4 at the client level: a
// server response with a pk_a that does not verifiably bind to pk_m must
// make the client abort before ever signing or redeeming a token.
func TestKeyBindingRejectsForgedProof(t *testing.T) {
	svc := testService(t)
	attrs := [][]byte{[]byte("app:demo"), []byte("2024-01")}
	caller := &service.AuthenticatedCaller{ID: "test-caller"}

	forgedScalar, err := group.RandomScalar()
	require.NoError(t, err)
	forgedPk := group.BaseMult(forgedScalar)

	_, legitProofBytes, err := svc.GetPublicKeyAndProof(context.Background(), attrs)
	require.NoError(t, err)

	splice := &spliceHandler{Handler: svc, pk: forgedPk.Bytes(), proof: legitProofBytes}

	_, err = credclient.RunAgainstHandler(context.Background(), splice, caller, attrs, token())
	assert.ErrorIs(t, err, credclient.ErrKeyBindingInvalid)
}
