package logging

import (
	"sync"
)

// ProgressSampler thins out progress logs for a batch of work items. Observe
// reports true the first time completion crosses into a new percentage
// bucket, and always for the final item. Safe for concurrent use.
type ProgressSampler struct {
	mu         sync.Mutex
	bucketSize float64
	total      int
	done       int
	lastBucket int
}

// NewProgressSampler constructs a sampler for total items that emits every
// bucketSize percent (default 25).
func NewProgressSampler(total int, bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 25
	}
	return &ProgressSampler{bucketSize: bucketSize, total: total}
}

// Observe records one finished item and returns the completed count, the
// percentage, and whether the caller should log it.
func (s *ProgressSampler) Observe() (int, float64, bool) {
	if s == nil {
		return 0, 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done++
	if s.total <= 0 {
		return s.done, 100, true
	}
	percent := float64(s.done) * 100 / float64(s.total)
	if s.done >= s.total {
		s.lastBucket = int(100 / s.bucketSize)
		return s.done, 100, true
	}
	bucket := int(percent / s.bucketSize)
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		return s.done, percent, true
	}
	return s.done, percent, false
}
