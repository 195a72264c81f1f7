package sink

import (
	"fmt"
	"testing"
	"time"

	"github.com/simforge/sim-runtime/errors"
)

func TestRecordAndLast(t *testing.T) {
	l := New(4)

	if _, ok := l.Last("a"); ok {
		t.Fatal("expected no record for unknown instance")
	}

	l.Record("a", errors.StepFailed("a", 1))
	l.Record("a", errors.Divergence("a", []string{"x"}))

	rec, ok := l.Last("a")
	if !ok {
		t.Fatal("expected a record")
	}
	if rec.Err.Kind != errors.KindNumericDivergence {
		t.Fatalf("last record kind = %q, want %q", rec.Err.Kind, errors.KindNumericDivergence)
	}
	if rec.InstanceID != "a" {
		t.Fatalf("instance id = %q, want %q", rec.InstanceID, "a")
	}
}

func TestNilErrorIgnored(t *testing.T) {
	l := New(4)
	l.Record("a", nil)
	if l.Len() != 0 {
		t.Fatalf("len = %d, want 0", l.Len())
	}
}

func TestRetentionBound(t *testing.T) {
	l := New(3)
	for i := 0; i < 10; i++ {
		l.Record("a", errors.StepFailed("a", int32(i)))
	}

	h := l.History("a")
	if len(h) != 3 {
		t.Fatalf("history length = %d, want 3", len(h))
	}
	// Oldest records dropped: codes 7, 8, 9 remain.
	for i, want := range []int32{7, 8, 9} {
		if got := h[i].Err.Detail; got != fmt.Sprintf("solver reported status %d", want) {
			t.Errorf("history[%d] detail = %q", i, got)
		}
	}
}

func TestHistoryIsolatedPerInstance(t *testing.T) {
	l := New(4)
	l.Record("a", errors.StepFailed("a", 1))
	l.Record("b", errors.StepFailed("b", 2))

	if got := len(l.History("a")); got != 1 {
		t.Fatalf("history(a) length = %d, want 1", got)
	}
	if got := len(l.History("b")); got != 1 {
		t.Fatalf("history(b) length = %d, want 1", got)
	}

	ids := l.InstanceIDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("instance ids = %v", ids)
	}

	l.Clear("a")
	if got := len(l.History("a")); got != 0 {
		t.Fatalf("history(a) after clear = %d, want 0", got)
	}
	if got := len(l.History("b")); got != 1 {
		t.Fatalf("history(b) after clearing a = %d, want 1", got)
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	l := New(4)
	l.Record("a", errors.StepFailed("a", 1))

	h := l.History("a")
	h[0].InstanceID = "mutated"

	again := l.History("a")
	if again[0].InstanceID != "a" {
		t.Fatal("mutating a returned history must not affect the log")
	}
}

type captureObserver struct {
	records []Record
}

func (c *captureObserver) OnSimulationError(r Record) {
	c.records = append(c.records, r)
}

func TestObserverNotification(t *testing.T) {
	l := New(4)
	obs := &captureObserver{}
	l.Subscribe(obs)

	l.Record("a", errors.StepFailed("a", 1))
	if len(obs.records) != 1 {
		t.Fatalf("observer saw %d records, want 1", len(obs.records))
	}

	l.Unsubscribe(obs)
	l.Record("a", errors.StepFailed("a", 2))
	if len(obs.records) != 1 {
		t.Fatalf("observer saw %d records after unsubscribe, want 1", len(obs.records))
	}
}

func TestRecordTimestamps(t *testing.T) {
	l := New(4)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	l.Record("a", errors.StepFailed("a", 1))
	rec, _ := l.Last("a")
	if !rec.Time.Equal(fixed) {
		t.Fatalf("record time = %v, want %v", rec.Time, fixed)
	}
}
