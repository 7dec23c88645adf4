// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package group wraps the Ristretto255 prime-order group for use by the
// DLEQ, KDF and VOPRF packages. Every value is a fixed-width 32-byte
// canonical encoding; scalar and element arithmetic is constant-time with
// respect to secret inputs, following the wrapping style of
// github.com/gtank/ristretto255 used directly (not through an intermediate
// curve-agnostic abstraction, since this build only ever targets one
// group).
package group

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gtank/ristretto255"
)

// ScalarLength is the canonical encoding length of a Scalar.
const ScalarLength = 32

// ElementLength is the canonical encoding length of an Element.
const ElementLength = 32

var (
	// ErrInvalidEncoding is returned when a 32-byte string does not decode to a
	// canonical scalar or element.
	ErrInvalidEncoding = errors.New("group: invalid encoding")

	// ErrZeroScalar is returned by Invert on the zero scalar, and by callers
	// that require a non-zero scalar (e.g. a fresh blind).
	ErrZeroScalar = errors.New("group: scalar is zero")

	// ErrIdentityElement is returned where an identity element would mask a
	// protocol failure.
	ErrIdentityElement = errors.New("group: element is the identity")
)

// Scalar is an integer modulo the group order, always held in canonical form.
type Scalar struct {
	s *ristretto255.Scalar
}

// Element is a point of the prime-order group, always held in canonical form.
type Element struct {
	e *ristretto255.Element
}

// one is the scalar encoding of the integer 1, used to recover the fixed
// generator via ScalarBaseMult without depending on a package-level base
// point accessor.
var one = func() *ristretto255.Scalar {
	buf := make([]byte, ScalarLength)
	buf[0] = 1

	s := ristretto255.NewScalar()
	if err := s.Decode(buf); err != nil {
		panic("group: failed to decode constant scalar one: " + err.Error())
	}

	return s
}()

// NewScalar returns the zero scalar.
func NewScalar() *Scalar {
	return &Scalar{s: ristretto255.NewScalar()}
}

// RandomScalar samples a uniform scalar in [0, q) using the system
// cryptographic RNG.
func RandomScalar() (*Scalar, error) {
	buf := make([]byte, 64)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("group: reading randomness: %w", err)
	}

	return &Scalar{s: ristretto255.NewScalar().FromUniformBytes(buf)}, nil
}

// DecodeScalar decodes a 32-byte canonical scalar encoding.
func DecodeScalar(data []byte) (*Scalar, error) {
	s := ristretto255.NewScalar()
	if err := s.Decode(data); err != nil {
		return nil, ErrInvalidEncoding
	}

	return &Scalar{s: s}, nil
}

// Bytes returns the canonical 32-byte encoding of s.
func (s *Scalar) Bytes() [ScalarLength]byte {
	var out [ScalarLength]byte
	copy(out[:], s.s.Encode(nil))

	return out
}

// Copy returns an independent copy of s.
func (s *Scalar) Copy() *Scalar {
	return &Scalar{s: ristretto255.NewScalar().Add(s.s, ristretto255.NewScalar())}
}

// Add returns s + other.
func (s *Scalar) Add(other *Scalar) *Scalar {
	return &Scalar{s: ristretto255.NewScalar().Add(s.s, other.s)}
}

// Sub returns s - other.
func (s *Scalar) Sub(other *Scalar) *Scalar {
	return &Scalar{s: ristretto255.NewScalar().Subtract(s.s, other.s)}
}

// Mul returns s * other.
func (s *Scalar) Mul(other *Scalar) *Scalar {
	return &Scalar{s: ristretto255.NewScalar().Multiply(s.s, other.s)}
}

// Invert returns the multiplicative inverse of s, or ErrZeroScalar if s is zero.
func (s *Scalar) Invert() (*Scalar, error) {
	if s.IsZero() {
		return nil, ErrZeroScalar
	}

	return &Scalar{s: ristretto255.NewScalar().Invert(s.s)}, nil
}

// IsZero reports whether s is the zero scalar, in constant time.
func (s *Scalar) IsZero() bool {
	var zero [ScalarLength]byte
	b := s.Bytes()
	return ctEqual(b[:], zero[:])
}

// Equal reports whether s and other are the same scalar, in constant time.
func (s *Scalar) Equal(other *Scalar) bool {
	a, b := s.Bytes(), other.Bytes()
	return ctEqual(a[:], b[:])
}

// Zeroize drops the scalar's value, replacing it with the zero scalar. The
// underlying ristretto255.Scalar does not expose its internal limbs for
// in-place wiping, so this is a best-effort release of the only reference
// this package ever keeps to the secret value; it is called at every point
// the spec requires a secret scalar's lifetime to end.
func (s *Scalar) Zeroize() {
	s.s = ristretto255.NewScalar()
}

// NewElement returns the identity element.
func NewElement() *Element {
	return &Element{e: ristretto255.NewElement()}
}

// Base returns the fixed group generator G.
func Base() *Element {
	return &Element{e: ristretto255.NewElement().ScalarBaseMult(one)}
}

// Identity returns the identity element.
func Identity() *Element {
	return NewElement()
}

// DecodeElement decodes a 32-byte canonical element encoding.
func DecodeElement(data []byte) (*Element, error) {
	e := ristretto255.NewElement()
	if err := e.Decode(data); err != nil {
		return nil, ErrInvalidEncoding
	}

	return &Element{e: e}, nil
}

// Bytes returns the canonical 32-byte encoding of e.
func (e *Element) Bytes() [ElementLength]byte {
	var out [ElementLength]byte
	copy(out[:], e.e.Encode(nil))

	return out
}

// Copy returns an independent copy of e.
func (e *Element) Copy() *Element {
	return &Element{e: ristretto255.NewElement().Add(e.e, ristretto255.NewElement())}
}

// Add returns e + other.
func (e *Element) Add(other *Element) *Element {
	return &Element{e: ristretto255.NewElement().Add(e.e, other.e)}
}

// ScalarMult returns s * e.
func (e *Element) ScalarMult(s *Scalar) *Element {
	return &Element{e: ristretto255.NewElement().ScalarMult(s.s, e.e)}
}

// BaseMult returns s * G.
func BaseMult(s *Scalar) *Element {
	return &Element{e: ristretto255.NewElement().ScalarBaseMult(s.s)}
}

// Equal reports whether e and other encode to the same canonical bytes.
func (e *Element) Equal(other *Element) bool {
	a, b := e.Bytes(), other.Bytes()
	return ctEqual(a[:], b[:])
}

// IsIdentity reports whether e is the group identity element.
func (e *Element) IsIdentity() bool {
	return e.Equal(Identity())
}

// HashToGroup maps an arbitrary-length message to an element of the group,
// domain-separated by dst.
func HashToGroup(dst string, msg []byte) *Element {
	return &Element{e: ristretto255.NewElement().FromUniformBytes(uniformBytes(dst, msg))}
}

// HashToScalar maps an arbitrary-length message to a scalar, domain-separated
// by dst.
func HashToScalar(dst string, msg []byte) *Scalar {
	return &Scalar{s: ristretto255.NewScalar().FromUniformBytes(uniformBytes(dst, msg))}
}

// HashTranscript hashes a domain-separated, length-prefixed transcript to a
// 64-byte digest. Used for VOPRF finalize (§4.2), which needs raw bytes
// rather than a scalar or element.
func HashTranscript(dst string, parts ...[]byte) [64]byte {
	h := sha512.New()
	h.Write(lengthPrefix([]byte(dst)))

	for _, p := range parts {
		h.Write(lengthPrefix(p))
	}

	var out [64]byte
	copy(out[:], h.Sum(nil))

	return out
}

// uniformBytes produces the 64 uniform bytes FromUniformBytes requires, by
// hashing a length-prefixed domain separation tag with SHA-512 ahead of the
// message. SHA-512's 64-byte digest is exactly the width ristretto255 needs,
// so a single hash call suffices.
func uniformBytes(dst string, msg []byte) []byte {
	tag := []byte(dst)

	h := sha512.New()
	h.Write(lengthPrefix(tag))
	h.Write(msg)

	return h.Sum(nil)
}

func lengthPrefix(b []byte) []byte {
	out := make([]byte, 2+len(b))
	binary.BigEndian.PutUint16(out, uint16(len(b)))
	copy(out[2:], b)

	return out
}

func ctEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
