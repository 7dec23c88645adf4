// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package group_test

import (
	"crypto/subtle"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anoncred/voprf/group"
)

func TestScalarEncodingRoundTrip(t *testing.T) {
	s, err := group.RandomScalar()
	require.NoError(t, err)

	b := s.Bytes()
	decoded, err := group.DecodeScalar(b[:])
	require.NoError(t, err)
	assert.True(t, s.Equal(decoded))
}

func TestElementEncodingRoundTrip(t *testing.T) {
	s, err := group.RandomScalar()
	require.NoError(t, err)

	e := group.BaseMult(s)
	b := e.Bytes()
	decoded, err := group.DecodeElement(b[:])
	require.NoError(t, err)
	assert.True(t, e.Equal(decoded))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	bad := make([]byte, group.ElementLength)
	for i := range bad {
		bad[i] = 0xFF
	}

	_, err := group.DecodeElement(bad)
	assert.ErrorIs(t, err, group.ErrInvalidEncoding)
}

func TestInvertZeroFails(t *testing.T) {
	_, err := group.NewScalar().Invert()
	assert.ErrorIs(t, err, group.ErrZeroScalar)
}

func TestScalarArithmetic(t *testing.T) {
	a, err := group.RandomScalar()
	require.NoError(t, err)
	b, err := group.RandomScalar()
	require.NoError(t, err)

	sum := a.Add(b)
	diff := sum.Sub(b)
	assert.True(t, diff.Equal(a))

	inv, err := a.Invert()
	require.NoError(t, err)
	assert.True(t, group.BaseMult(a.Mul(inv)).Equal(group.Base()))
}

func TestElementAdd(t *testing.T) {
	a, err := group.RandomScalar()
	require.NoError(t, err)
	b, err := group.RandomScalar()
	require.NoError(t, err)

	sum := group.BaseMult(a.Add(b))
	viaAdd := group.BaseMult(a).Add(group.BaseMult(b))
	assert.True(t, sum.Equal(viaAdd))

	assert.True(t, group.BaseMult(a).Add(group.Identity()).Equal(group.BaseMult(a)))
}

func TestIdentityElement(t *testing.T) {
	id := group.Identity()
	assert.True(t, id.IsIdentity())

	s, err := group.RandomScalar()
	require.NoError(t, err)
	assert.False(t, group.BaseMult(s).IsIdentity())
}

func TestHashToGroupDeterministic(t *testing.T) {
	msg := []byte("token-0001")
	a := group.HashToGroup(group.DSTHashToGroup, msg)
	b := group.HashToGroup(group.DSTHashToGroup, msg)
	assert.True(t, a.Equal(b))

	c := group.HashToGroup(group.DSTHashToGroup, []byte("token-0002"))
	assert.False(t, a.Equal(c))
}

func TestHashToScalarDomainSeparation(t *testing.T) {
	msg := []byte("same-message")
	a := group.HashToScalar(group.DSTHashToScalar, msg)
	b := group.HashToScalar(group.DSTDleqChallenge, msg)
	assert.False(t, a.Equal(b))
}

func TestConstantTimeEqualityUsesSubtle(t *testing.T) {
	a, err := group.RandomScalar()
	require.NoError(t, err)
	ab := a.Bytes()

	// Equal must agree with a direct constant-time comparison of the
	// canonical encodings; this is a structural check that Equal does not
	// special-case short-circuiting on secret-dependent branches.
	b, err := group.DecodeScalar(ab[:])
	require.NoError(t, err)
	bb := b.Bytes()

	assert.Equal(t, subtle.ConstantTimeCompare(ab[:], bb[:]) == 1, a.Equal(b))
}
