package cache

import (
	"context"
	"log"
	"sync"
	"time"
)

// WarmupJob primes one cache key. Load produces the value on demand so jobs
// can be queued long before they run; a job whose key is already cached is
// skipped.
type WarmupJob struct {
	Key      string
	TTL      time.Duration
	Priority int
	Load     func() (interface{}, error)
}

// CacheWarmer drains a priority queue of warmup jobs in the background.
// Jobs arrive at any time (typically on login); the drain loop wakes on a
// signal channel and on a slow ticker as a fallback.
type CacheWarmer struct {
	cache Cache
	queue *PriorityQueue

	interval time.Duration
	wake     chan struct{}
	stopCh   chan struct{}

	mu      sync.Mutex
	running bool
}

func NewCacheWarmer(cache Cache, interval time.Duration) *CacheWarmer {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &CacheWarmer{
		cache:    cache,
		queue:    NewPriorityQueue(),
		interval: interval,
		wake:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

func (cw *CacheWarmer) AddWarmupJob(job WarmupJob) {
	cw.queue.Push(job)

	select {
	case cw.wake <- struct{}{}:
	default:
	}
}

func (cw *CacheWarmer) Start(ctx context.Context) {
	cw.mu.Lock()
	if cw.running {
		cw.mu.Unlock()
		return
	}
	cw.running = true
	cw.mu.Unlock()

	go cw.loop(ctx)
}

func (cw *CacheWarmer) Stop() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.running {
		return
	}
	cw.running = false
	close(cw.stopCh)
}

func (cw *CacheWarmer) QueueLen() int {
	return cw.queue.Len()
}

func (cw *CacheWarmer) loop(ctx context.Context) {
	ticker := time.NewTicker(cw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopCh:
			return
		case <-cw.wake:
			cw.drain()
		case <-ticker.C:
			cw.drain()
		}
	}
}

func (cw *CacheWarmer) drain() {
	for {
		job, ok := cw.queue.Pop()
		if !ok {
			return
		}
		cw.run(job)
	}
}

func (cw *CacheWarmer) run(job WarmupJob) {
	if job.Load == nil {
		return
	}

	if exists, err := cw.cache.Exists(job.Key); err == nil && exists {
		return
	}

	value, err := job.Load()
	if err != nil {
		log.Printf("cache warmup failed for %s: %v", job.Key, err)
		return
	}

	if err := cw.cache.Set(job.Key, value, job.TTL); err != nil {
		log.Printf("cache warmup set failed for %s: %v", job.Key, err)
	}
}
