package health

import (
	"os"
	"path/filepath"
	"time"
)

// BuildFreshnessCheck reports on the age of the current build. No build yet
// is degraded (the service is up but has nothing to serve); a build older
// than maxAge is degraded too, since the scheduler has apparently stopped
// producing.
func BuildFreshnessCheck(lastCompleted func() (time.Time, bool), maxAge time.Duration) CheckFunc {
	return func() Check {
		check := Check{Name: "build_freshness", Details: make(map[string]any)}

		completedAt, ok := lastCompleted()
		if !ok {
			check.Status = StatusDegraded
			check.Message = "no completed build yet"
			return check
		}

		age := time.Since(completedAt)
		check.Details["completed_at"] = completedAt
		check.Details["age_seconds"] = age.Seconds()

		if maxAge > 0 && age > maxAge {
			check.Status = StatusDegraded
			check.Message = "last build is stale"
		} else {
			check.Status = StatusHealthy
			check.Message = "build is fresh"
		}
		return check
	}
}

// CacheWritableCheck verifies the cache directory accepts writes, so a full
// or read-only disk surfaces before the next build silently fails to
// persist.
func CacheWritableCheck(dir string) CheckFunc {
	return func() Check {
		check := Check{Name: "cache_writable", Details: map[string]any{"dir": dir}}

		probe := filepath.Join(dir, ".health-probe")
		if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}
		os.Remove(probe)

		check.Status = StatusHealthy
		check.Message = "writable"
		return check
	}
}

// BuildNotStuckCheck flags a build that has been running longer than
// maxDuration, which with no cancellation mechanism means the process is
// likely wedged.
func BuildNotStuckCheck(state func() (building bool, since time.Time), maxDuration time.Duration) CheckFunc {
	return func() Check {
		check := Check{Name: "build_not_stuck"}

		building, since := state()
		if !building {
			check.Status = StatusHealthy
			check.Message = "no build in flight"
			return check
		}

		running := time.Since(since)
		check.Details = map[string]any{"running_seconds": running.Seconds()}
		if maxDuration > 0 && running > maxDuration {
			check.Status = StatusUnhealthy
			check.Message = "build running too long"
		} else {
			check.Status = StatusHealthy
			check.Message = "build in progress"
		}
		return check
	}
}
