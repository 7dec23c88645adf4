// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package service adapts the group/dleq/voprf/kdf core to the four RPC
// operations of the anonymous credential protocol. It is the boundary
// where core errors get translated to stable error codes, counted, and
// logged — the core packages themselves never do any of that.
package service

import (
	"context"
	"crypto/subtle"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/anoncred/voprf/group"
	"github.com/anoncred/voprf/kdf"
	"github.com/anoncred/voprf/voprf"
)

var logger = logging.MustGetLogger("anoncred/service")

// ErrorCode is the stable, transport-independent error taxonomy of §7. Core
// errors are mapped onto one of these before they ever reach an RPC
// handler; the mapping is total (classify always returns a code).
type ErrorCode int

const (
	// CodeNone is the zero value, returned by classify for a nil error.
	CodeNone ErrorCode = iota
	// CodeInvalidEncoding covers any 32-byte decode failure.
	CodeInvalidEncoding
	// CodeProofInvalid covers a DLEQ verification failure.
	CodeProofInvalid
	// CodeArithmeticDomain covers a zero scalar where an inverse is required.
	CodeArithmeticDomain
	// CodeNoAttributes covers an empty attribute list.
	CodeNoAttributes
	// CodeSecretMismatch covers a redemption whose shared secret disagrees.
	CodeSecretMismatch
	// CodeAuthRequired covers a missing or rejected external authentication.
	CodeAuthRequired
	// CodeInternal is the catch-all for anything not otherwise classified.
	CodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case CodeNone:
		return "none"
	case CodeInvalidEncoding:
		return "invalid_encoding"
	case CodeProofInvalid:
		return "proof_invalid"
	case CodeArithmeticDomain:
		return "arithmetic_domain"
	case CodeNoAttributes:
		return "no_attributes"
	case CodeSecretMismatch:
		return "secret_mismatch"
	case CodeAuthRequired:
		return "auth_required"
	default:
		return "internal"
	}
}

// Error is a service-level error carrying a stable ErrorCode alongside the
// wrapped underlying cause, for callers that want both a stable code to
// switch on and a message to log.
type Error struct {
	Code  ErrorCode
	cause error
}

func (e *Error) Error() string {
	return e.Code.String() + ": " + e.cause.Error()
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// ErrAuthRequired is returned by SignCredential when no authenticated
// caller was supplied.
var ErrAuthRequired = errors.New("service: authenticated caller required")

// classify maps a core-package error to a stable ErrorCode.
func classify(err error) ErrorCode {
	switch {
	case err == nil:
		return CodeNone
	case errors.Is(err, group.ErrInvalidEncoding):
		return CodeInvalidEncoding
	case errors.Is(err, voprf.ErrProofInvalid):
		return CodeProofInvalid
	case errors.Is(err, group.ErrZeroScalar), errors.Is(err, kdf.ErrDerivationFailure):
		return CodeArithmeticDomain
	case errors.Is(err, kdf.ErrNoAttributes):
		return CodeNoAttributes
	case errors.Is(err, ErrAuthRequired):
		return CodeAuthRequired
	case errors.Is(err, errSecretMismatch):
		return CodeSecretMismatch
	default:
		return CodeInternal
	}
}

// wrap builds an *Error from a core error, incrementing the per-code
// failure counter and logging at WARNING with no secret-bearing fields —
// implementing §7's "logs a counter increment but not the failing bytes."
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}

	code := classify(err)
	failuresTotal.WithLabelValues(op, code.String()).Inc()
	logger.Warningf("%s failed: code=%s", op, code)

	return &Error{Code: code, cause: err}
}

var failuresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "anoncred",
		Name:      "request_failures_total",
		Help:      "Count of failed anonymous credential operations by operation and error code.",
	},
	[]string{"operation", "code"},
)

var issuedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "anoncred",
		Name:      "credentials_issued_total",
		Help:      "Count of successfully signed credentials.",
	},
	[]string{},
)

var redeemedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "anoncred",
		Name:      "credentials_redeemed_total",
		Help:      "Count of successfully redeemed credentials.",
	},
	[]string{},
)

func init() {
	prometheus.MustRegister(failuresTotal, issuedTotal, redeemedTotal)
}

// AuthenticatedCaller is an opaque marker produced by an external
// authenticator and threaded through to SignCredential. service never
// constructs one; see §6.1's framing of client authentication as an
// external collaborator.
type AuthenticatedCaller struct {
	// ID is an opaque, authenticator-defined identifier, logged but never
	// interpreted by service itself.
	ID string
}

// Handler is the transport-agnostic RPC surface of §6.1.
type Handler interface {
	GetPrimaryPublicKey(ctx context.Context) (pk [32]byte)
	GetPublicKeyAndProof(ctx context.Context, attributes [][]byte) (pk [32]byte, proof [64]byte, err error)
	SignCredential(ctx context.Context, caller *AuthenticatedCaller, blinded [32]byte, attributes [][]byte) (evaluated [32]byte, proof [64]byte, err error)
	RedeemCredential(ctx context.Context, token [32]byte, sharedSecret [64]byte, attributes [][]byte) error
}

// CredentialService is the reference Handler implementation, composing
// kdf.Primary with the voprf package.
type CredentialService struct {
	primary *kdf.Primary
}

// NewCredentialService constructs a handler around an already-derived
// primary key pair. The caller owns primary's lifetime, including calling
// Zeroize at process shutdown.
func NewCredentialService(primary *kdf.Primary) *CredentialService {
	return &CredentialService{primary: primary}
}

// GetPrimaryPublicKey always succeeds, per §6.1's failure column.
func (s *CredentialService) GetPrimaryPublicKey(_ context.Context) [32]byte {
	return s.primary.PublicKey().Bytes()
}

// GetPublicKeyAndProof derives pk_a for attributes and returns it with the
// DLEQ proof binding it to pk_m.
func (s *CredentialService) GetPublicKeyAndProof(_ context.Context, attributes [][]byte) ([32]byte, [64]byte, error) {
	derived, err := s.primary.DeriveKeyPair(attributes)
	if err != nil {
		return [32]byte{}, [64]byte{}, wrap("getPublicKeyAndProof", err)
	}

	return derived.Public.Bytes(), derived.Proof.Bytes(), nil
}

// SignCredential requires a non-nil authenticated caller (authentication
// itself happens outside this package), re-derives the per-attribute key
// pair, and evaluates the VOPRF on the blinded point, returning a
// verifiable evaluation.
func (s *CredentialService) SignCredential(_ context.Context, caller *AuthenticatedCaller, blinded [32]byte, attributes [][]byte) ([32]byte, [64]byte, error) {
	if caller == nil {
		return [32]byte{}, [64]byte{}, wrap("signCredential", ErrAuthRequired)
	}

	blindedElement, err := group.DecodeElement(blinded[:])
	if err != nil {
		return [32]byte{}, [64]byte{}, wrap("signCredential", err)
	}

	derived, err := s.primary.DeriveKeyPair(attributes)
	if err != nil {
		return [32]byte{}, [64]byte{}, wrap("signCredential", err)
	}

	evaluated, proof, err := voprf.Evaluate(derived.Secret, derived.Public, blindedElement, true)
	if err != nil {
		return [32]byte{}, [64]byte{}, wrap("signCredential", err)
	}

	derived.Zeroize()
	issuedTotal.WithLabelValues().Inc()
	logger.Infof("signCredential: issued credential for caller=%s", caller.ID)

	return evaluated.Bytes(), proof.Bytes(), nil
}

// RedeemCredential recomputes the per-attribute secret key deterministically
// from attributes and checks that server_finalize(sk_a, token) equals the
// client-submitted shared secret in constant time.
func (s *CredentialService) RedeemCredential(_ context.Context, token [32]byte, sharedSecret [64]byte, attributes [][]byte) error {
	derived, err := s.primary.DeriveKeyPair(attributes)
	if err != nil {
		return wrap("redeemCredential", err)
	}

	expected := voprf.ServerFinalize(derived.Secret, token)
	derived.Zeroize()

	if subtle.ConstantTimeCompare(expected[:], sharedSecret[:]) != 1 {
		return wrap("redeemCredential", errSecretMismatch)
	}

	redeemedTotal.WithLabelValues().Inc()
	logger.Infof("redeemCredential: redeemed credential")

	return nil
}

var errSecretMismatch = errors.New("service: shared secret does not match")

// grpcCode maps an ErrorCode to the grpc/codes value a gRPC front end
// (layered on top of Handler, same as emmyzkp-emmy's anauth/cl.Server
// does for its own error taxonomy) should return.
func (c ErrorCode) grpcCode() codes.Code {
	switch c {
	case CodeNone:
		return codes.OK
	case CodeInvalidEncoding, CodeNoAttributes, CodeArithmeticDomain:
		return codes.InvalidArgument
	case CodeProofInvalid, CodeSecretMismatch:
		return codes.PermissionDenied
	case CodeAuthRequired:
		return codes.Unauthenticated
	default:
		return codes.Internal
	}
}

// ToGRPCStatus translates a service error into a *status.Status a gRPC
// handler can return directly, carrying only the stable ErrorCode string
// as the message, never the wrapped cause — the same "no secret-bearing
// detail" rule Error.Error() relaxes for local logging but a wire
// response must not.
func ToGRPCStatus(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}

	svcErr, ok := err.(*Error)
	if !ok {
		return status.New(codes.Internal, "internal")
	}

	return status.New(svcErr.Code.grpcCode(), svcErr.Code.String())
}
