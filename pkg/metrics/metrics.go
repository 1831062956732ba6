// Package metrics records operation counters for evidentry.
package metrics

import (
	"sync"
	"time"
)

// Registry holds operation counters.
type Registry struct {
	mu sync.Mutex

	MatchCalls        int64
	MatchFallbacks    int64
	MappingsPersisted int64
	GapsOpened        int64
	GapsResolved      int64
	PackagesSealed    int64
	PackagesFailed    int64
	BytesPackaged     int64
	ChainAppends      int64
	ChainVerifies     int64
	FreshnessChecks   int64
	NotificationsSent int64

	packageDurations []time.Duration
}

// NewRegistry creates a new metrics registry.
func NewRegistry() *Registry {
	return &Registry{}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// RecordMatch records one provider call; fallback marks a degraded result.
func (r *Registry) RecordMatch(fallback bool, persisted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.MatchCalls++
	if fallback {
		r.MatchFallbacks++
	}
	if persisted {
		r.MappingsPersisted++
	}
}

// RecordGap records a gap lifecycle change.
func (r *Registry) RecordGap(opened bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if opened {
		r.GapsOpened++
	} else {
		r.GapsResolved++
	}
}

// RecordPackage records a package generation outcome.
func (r *Registry) RecordPackage(sealed bool, duration time.Duration, sizeBytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sealed {
		r.PackagesSealed++
		r.BytesPackaged += sizeBytes
	} else {
		r.PackagesFailed++
	}
	r.packageDurations = append(r.packageDurations, duration)
}

// RecordChainAppend records one provenance append.
func (r *Registry) RecordChainAppend() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ChainAppends++
}

// RecordChainVerify records one chain verification.
func (r *Registry) RecordChainVerify() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ChainVerifies++
}

// RecordFreshness records one freshness sweep and its notifications.
func (r *Registry) RecordFreshness(notifications int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FreshnessChecks++
	r.NotificationsSent += int64(notifications)
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	MatchCalls        int64
	MatchFallbacks    int64
	MappingsPersisted int64
	GapsOpened        int64
	GapsResolved      int64
	PackagesSealed    int64
	PackagesFailed    int64
	BytesPackaged     int64
	ChainAppends      int64
	ChainVerifies     int64
	FreshnessChecks   int64
	NotificationsSent int64
}

// Snapshot returns a copy of the current counters.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		MatchCalls:        r.MatchCalls,
		MatchFallbacks:    r.MatchFallbacks,
		MappingsPersisted: r.MappingsPersisted,
		GapsOpened:        r.GapsOpened,
		GapsResolved:      r.GapsResolved,
		PackagesSealed:    r.PackagesSealed,
		PackagesFailed:    r.PackagesFailed,
		BytesPackaged:     r.BytesPackaged,
		ChainAppends:      r.ChainAppends,
		ChainVerifies:     r.ChainVerifies,
		FreshnessChecks:   r.FreshnessChecks,
		NotificationsSent: r.NotificationsSent,
	}
}
