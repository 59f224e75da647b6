package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"slices"
	"sync"
	"time"

	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
)

// defaultLockShards spreads partitions over enough mutexes that unrelated
// vaults and depositors rarely contend.
const defaultLockShards = 128

// defaultLockTimeout bounds how long an operation waits for its partition.
const defaultLockTimeout = 5 * time.Second

// shardedLocker serializes access per partition key within one process.
// Keys hash onto a fixed set of mutexes; two keys sharing a shard are
// serialized with each other, which is safe but slower.
type shardedLocker struct {
	shards  []chan struct{}
	timeout time.Duration
}

func newShardedLocker(shards int, timeout time.Duration) *shardedLocker {
	if shards <= 0 {
		shards = defaultLockShards
	}
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}
	l := &shardedLocker{
		shards:  make([]chan struct{}, shards),
		timeout: timeout,
	}
	for i := range l.shards {
		l.shards[i] = make(chan struct{}, 1)
	}
	return l
}

// Lock waits for the key's shard until ctx is done or the lock timeout passes.
func (l *shardedLocker) Lock(ctx context.Context, key string) (func(), error) {
	return l.LockAll(ctx, key)
}

// LockAll takes the shards of every key in ascending shard order, so two
// callers locking overlapping key sets cannot deadlock and keys sharing a
// shard take it once. Either all shards are held on return or none is.
func (l *shardedLocker) LockAll(ctx context.Context, keys ...string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "lock aborted: context cancelled")
	}
	idx := make([]int, 0, len(keys))
	for _, key := range keys {
		idx = append(idx, int(hashKey(key)%uint32(len(l.shards))))
	}
	slices.Sort(idx)
	idx = slices.Compact(idx)

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()
	held := make([]chan struct{}, 0, len(idx))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}
	for _, i := range idx {
		shard := l.shards[i]
		select {
		case shard <- struct{}{}:
			held = append(held, shard)
		case <-ctx.Done():
			release()
			return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "lock aborted: context cancelled")
		case <-timer.C:
			release()
			return nil, dErrors.New(dErrors.CodeTimeout, "timed out waiting for partition lock")
		}
	}

	var once sync.Once
	return func() {
		once.Do(release)
	}, nil
}

func hashKey(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

func vaultKey(vaultID id.VaultID) string {
	return fmt.Sprintf("vault:%d", vaultID)
}

func ledgerKey(vaultID id.VaultID, depositor id.PrincipalID) string {
	return fmt.Sprintf("ledger:%d:%s", vaultID, depositor)
}

const registryKey = "registry"
