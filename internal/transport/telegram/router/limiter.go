package router

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterSet keeps one token bucket per principal name.
type limiterSet struct {
	mu     sync.Mutex
	perMin int
	m      map[string]*rate.Limiter
}

func newLimiterSet(perMin int) *limiterSet {
	return &limiterSet{perMin: perMin, m: map[string]*rate.Limiter{}}
}

// reset changes the rate and drops existing buckets.
func (s *limiterSet) reset(perMin int) {
	s.mu.Lock()
	s.perMin = perMin
	s.m = map[string]*rate.Limiter{}
	s.mu.Unlock()
}

func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.perMin <= 0 {
		return true
	}
	l := s.m[key]
	if l == nil {
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.perMin)), s.perMin)
		s.m[key] = l
	}
	return l.Allow()
}
