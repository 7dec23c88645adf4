// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package ledger is an explicitly external double-spend guard. The core
// protocol (group, dleq, voprf, kdf) and the service package never import
// it — redeemCredential's contract is "tells you whether the secret
// matches," not "tells you whether this is the first redemption." A
// caller that wants the latter composes a Ledger in front of
// service.Handler.RedeemCredential itself.
package ledger

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ledger records which tokens have already been redeemed. Mark reports
// true if token was already present (a double-spend) and false if this
// call recorded it for the first time; either way, after Mark returns,
// token is recorded.
type Ledger interface {
	Mark(ctx context.Context, token [32]byte) (alreadySpent bool, err error)
}

// InMemory is a process-local Ledger backed by a mutex-guarded set. It is
// the default: correct for a single server process, lost on restart.
type InMemory struct {
	mu   sync.Mutex
	seen map[[32]byte]struct{}
}

// NewInMemory constructs an empty in-memory ledger.
func NewInMemory() *InMemory {
	return &InMemory{seen: make(map[[32]byte]struct{})}
}

// Mark records token, reporting whether it had already been seen.
func (l *InMemory) Mark(_ context.Context, token [32]byte) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.seen[token]; exists {
		return true, nil
	}

	l.seen[token] = struct{}{}

	return false, nil
}

// Redis is a Ledger backed by an external Redis instance, for servers
// running more than one process against a shared double-spend record.
// Marking is atomic via SETNX, so concurrent redeem attempts for the same
// token from different processes still agree on exactly one winner.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis wraps an already-configured *redis.Client. keyPrefix
// namespaces this ledger's keys within a shared Redis instance; ttl
// bounds how long a redeemed token's record is retained (0 disables
// expiry, matching the protocol's "a token is redeemable at most once,
// forever" semantics at the cost of unbounded key growth).
func NewRedis(client *redis.Client, keyPrefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: keyPrefix, ttl: ttl}
}

// Mark attempts to atomically claim token via SETNX; a false result from
// Redis means the key already existed, i.e. a double-spend.
func (l *Redis) Mark(ctx context.Context, token [32]byte) (bool, error) {
	key := l.key(token)

	claimed, err := l.client.SetNX(ctx, key, "1", l.ttl).Result()
	if err != nil {
		return false, err
	}

	return !claimed, nil
}

// Ping checks connectivity to the backing Redis instance, mirroring the
// startup health check a server process should run before trusting this
// ledger.
func (l *Redis) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *Redis) key(token [32]byte) string {
	return l.prefix + ":" + hex.EncodeToString(token[:])
}
