package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript is the atomic check-and-delete run against every node on
// release.
var releaseScript = redis.NewScript(`
if redis.call('get', KEYS[1]) == ARGV[1] then
    return redis.call('del', KEYS[1])
else
    return 0
end`)

// Redlock is a multi-node quorum lock: acquisition succeeds only when a
// majority of independent Redis nodes grant it, so the lock survives the
// loss of a minority of nodes.
type Redlock struct {
	clients []*redis.Client
	key     string
	ttl     time.Duration
	quorum  int
}

// NewRedlock creates a quorum lock across the given clients.
func NewRedlock(clients []*redis.Client, key string, ttl time.Duration, quorum int) *Redlock {
	return &Redlock{clients: clients, key: key, ttl: ttl, quorum: quorum}
}

// Acquire attempts SET NX on every node. If fewer than quorum nodes
// grant the lock, the partial grants are released and Acquire returns
// false. Unreachable nodes simply don't count toward the quorum.
func (r *Redlock) Acquire(ctx context.Context, owner string) bool {
	acquired := 0

	for _, client := range r.clients {
		ok, err := client.SetNX(ctx, r.key, owner, r.ttl).Result()
		if err != nil {
			continue
		}
		if ok {
			acquired++
		}
	}

	if acquired >= r.quorum {
		return true
	}

	r.Release(ctx, owner)
	return false
}

// Release runs the atomic check-and-delete on every node, ignoring nodes
// that are down or where the lock belongs to someone else.
func (r *Redlock) Release(ctx context.Context, owner string) {
	for _, client := range r.clients {
		releaseScript.Run(ctx, client, []string{r.key}, owner)
	}
}
