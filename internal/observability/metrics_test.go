package observability

import (
	"testing"
	"time"
)

func TestMetrics_CacheLookups(t *testing.T) {
	m := NewMetrics()

	m.RecordCacheLookup(true)
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)

	hits, misses := m.CacheLookups()
	if hits != 2 || misses != 1 {
		t.Fatalf("expected 2 hits / 1 miss, got %d/%d", hits, misses)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/referral_code", "POST", 201, time.Millisecond)
	m.RecordError("/referral_code", "POST", "ACTIVE_CODE_EXISTS")
	m.RecordCacheLookup(true)
	if hits, misses := m.CacheLookups(); hits != 0 || misses != 0 {
		t.Fatalf("nil metrics should report zero, got %d/%d", hits, misses)
	}
}
