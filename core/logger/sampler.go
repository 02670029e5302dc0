package logger

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// ratio keeps Keep out of every Every events. The zero ratio keeps everything.
type ratio struct {
	Keep, Every int
}

func (r ratio) all() bool { return r.Keep <= 0 || r.Every <= 0 || r.Keep >= r.Every }

// parseRatio accepts "all", "N" (one in N) and "K/N".
func parseRatio(s string) (ratio, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "all", "0", "1":
		return ratio{}, nil
	}
	keepStr, everyStr, found := strings.Cut(s, "/")
	if !found {
		keepStr, everyStr = "1", s
	}
	keep, err := strconv.Atoi(strings.TrimSpace(keepStr))
	if err != nil || keep <= 0 {
		return ratio{}, fmt.Errorf("logger: bad sample ratio %q", s)
	}
	every, err := strconv.Atoi(strings.TrimSpace(everyStr))
	if err != nil || every <= 0 {
		return ratio{}, fmt.Errorf("logger: bad sample ratio %q", s)
	}
	return ratio{Keep: keep, Every: every}, nil
}

// componentSampler thins high-volume debug events. Each component counts on
// its own; components without an override share the base ratio.
type componentSampler struct {
	mu        sync.Mutex
	base      ratio
	overrides map[string]ratio
	counters  map[string]int
}

func newComponentSampler(base ratio) *componentSampler {
	return &componentSampler{
		base:      base,
		overrides: map[string]ratio{},
		counters:  map[string]int{},
	}
}

// Configure replaces the ratios and restarts every counter.
func (s *componentSampler) Configure(base ratio, overrides map[string]ratio) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = base
	s.overrides = make(map[string]ratio, len(overrides))
	for comp, r := range overrides {
		s.overrides[strings.TrimSpace(comp)] = r
	}
	s.counters = map[string]int{}
}

// Allow reports whether the next debug event of component passes.
func (s *componentSampler) Allow(component string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.overrides[component]
	if !ok {
		r = s.base
	}
	if r.all() {
		return true
	}
	n := s.counters[component]
	s.counters[component] = (n + 1) % r.Every
	return n < r.Keep
}
