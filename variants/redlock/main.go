// The redlock variant service: NUM_CONSUMERS workers contend for a
// quorum lock spread across the Redis nodes listed in REDIS_NODES. When
// every worker has held the lock once, the service prints the completion
// marker the benchmark harness scans for.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lockKey    = "my-distributed-lock"
	lockTTL    = time.Second
	quorum     = 3
	retryDelay = 200 * time.Millisecond
)

func main() {
	nodes := strings.Split(envOr("REDIS_NODES", "localhost:6379"), ",")
	consumers := envInt("NUM_CONSUMERS", 5)
	workDuration := time.Duration(envInt("WORK_DURATION", 950)) * time.Millisecond

	start := time.Now()

	fmt.Println("Application starting (Redlock Multi-Node)...")
	fmt.Printf("Nodes: %s\n", strings.Join(nodes, ","))
	fmt.Printf("Consumers: %d, Work duration: %v, Lock TTL: %v\n",
		consumers, workDuration, lockTTL)

	clients := make([]*redis.Client, 0, len(nodes))
	for _, node := range nodes {
		clients = append(clients, redis.NewClient(&redis.Options{
			Addr:        strings.TrimSpace(node),
			DialTimeout: 2 * time.Second,
		}))
	}
	defer func() {
		for _, client := range clients {
			client.Close()
		}
	}()

	lock := NewRedlock(clients, lockKey, lockTTL, quorum)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runConsumer(ctx, lock, id, workDuration)
		}(i)
	}
	wg.Wait()

	fmt.Println("Application finished.")
	fmt.Printf("TOTAL_TIME_MS: %d\n", time.Since(start).Milliseconds())
}

func runConsumer(ctx context.Context, lock *Redlock, id int, workDuration time.Duration) {
	owner := fmt.Sprintf("consumer-%d", id)

	for {
		if !lock.Acquire(ctx, owner) {
			time.Sleep(retryDelay)
			continue
		}

		fmt.Printf("Consumer %d acquired the lock (Quorum reached).\n", id)
		time.Sleep(workDuration)

		fmt.Printf("Consumer %d attempting to release the lock.\n", id)
		lock.Release(ctx, owner)

		return
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
