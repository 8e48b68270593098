// The lua variant service: NUM_CONSUMERS workers contend for one
// single-node Redis lock released via an atomic Lua script. When every
// worker has held the lock once, the service prints the completion marker
// the benchmark harness scans for.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lockKey    = "my-distributed-lock"
	lockTTL    = time.Second
	retryDelay = 200 * time.Millisecond
)

func main() {
	host := envOr("REDIS_HOST", "localhost")
	consumers := envInt("NUM_CONSUMERS", 5)
	workDuration := time.Duration(envInt("WORK_DURATION", 500)) * time.Millisecond

	start := time.Now()

	fmt.Println("Application starting (with Lua script atomicity)...")
	fmt.Printf("Consumers: %d, Work duration: %v, Lock TTL: %v\n",
		consumers, workDuration, lockTTL)

	client := redis.NewClient(&redis.Options{
		Addr: host + ":6379",
		// The release script deliberately blocks the server; keep reads
		// from timing out underneath it.
		ReadTimeout: 10 * time.Second,
	})
	defer client.Close()

	lock := NewLock(client, lockKey, lockTTL)
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

func runConsumer(ctx context.Context, lock *Lock, id int, workDuration time.Duration) {
	owner := fmt.Sprintf("consumer-%d", id)

	for {
		ok, err := lock.Acquire(ctx, owner)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Consumer %d Error: %v\n", id, err)
			time.Sleep(retryDelay)
			continue
		}

		if !ok {
			time.Sleep(retryDelay)
			continue
		}

		fmt.Printf("Consumer %d acquired the lock.\n", id)
		time.Sleep(workDuration)

		fmt.Printf("Consumer %d attempting to release the lock.\n", id)
		released, err := lock.Release(ctx, owner)
		switch {
		case err != nil:
			fmt.Fprintf(os.Stderr, "Consumer %d Error: %v\n", id, err)
		case released:
			fmt.Println("Lock released successfully (atomic check-and-delete).")
		default:
			fmt.Println("Lock NOT released - value mismatch (lock belongs to someone else).")
		}

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
