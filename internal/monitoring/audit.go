package monitoring

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// DropAudit counts input elements that were skipped because they could not
// be mapped (for example annotations whose category has no display class).
// It is safe for concurrent use.
type DropAudit struct {
	mu     sync.Mutex
	counts map[string]map[string]int
}

// NewDropAudit returns an empty audit.
func NewDropAudit() *DropAudit {
	return &DropAudit{counts: make(map[string]map[string]int)}
}

// Record notes one dropped element of the given kind and key.
func (a *DropAudit) Record(kind, key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.counts[kind]
	if !ok {
		m = make(map[string]int)
		a.counts[kind] = m
	}
	m[key]++
}

// Count returns how many elements of kind were dropped for key.
func (a *DropAudit) Count(kind, key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[kind][key]
}

// Total returns the number of dropped elements of kind across all keys.
func (a *DropAudit) Total(kind string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.counts[kind] {
		n += c
	}
	return n
}

// Summary renders the counts of one kind as "key=n" pairs sorted by key.
func (a *DropAudit) Summary(kind string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	keys := make([]string, 0, len(a.counts[kind]))
	for k := range a.counts[kind] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strconv.Itoa(a.counts[kind][k]))
	}
	return strings.Join(parts, ", ")
}

// Report logs one line per kind with at least one drop.
func (a *DropAudit) Report(prefix string) {
	a.mu.Lock()
	kinds := make([]string, 0, len(a.counts))
	for k := range a.counts {
		kinds = append(kinds, k)
	}
	a.mu.Unlock()
	sort.Strings(kinds)
	for _, kind := range kinds {
		if n := a.Total(kind); n > 0 {
			Logf("%s dropped %d %s: %s", prefix, n, kind, a.Summary(kind))
		}
	}
}
