// Package sink collects simulation errors per instance. The runtime reports
// every contained failure here so hosts can inspect what went wrong after
// the fact instead of handling each error inline.
package sink

import (
	"sort"
	"sync"
	"time"

	"github.com/simforge/sim-runtime/errors"
)

// DefaultRetention is the per-instance history bound used when New is given
// a non-positive retention.
const DefaultRetention = 8

// Record is one reported simulation error.
type Record struct {
	InstanceID string
	Time       time.Time
	Err        *errors.Error
}

// Observer is notified synchronously for every reported record.
type Observer interface {
	OnSimulationError(Record)
}

// Log is a bounded per-instance error history. All methods are safe for
// concurrent use. Recording never fails; when an instance's history is full
// the oldest record is dropped.
type Log struct {
	mu        sync.RWMutex
	retention int
	history   map[string][]Record
	observers []Observer

	now func() time.Time // test seam
}

// New creates a log keeping up to retention records per instance.
func New(retention int) *Log {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Log{
		retention: retention,
		history:   make(map[string][]Record),
		now:       time.Now,
	}
}

// Record appends an error to the instance's history and notifies observers.
// A nil error is ignored.
func (l *Log) Record(instanceID string, err *errors.Error) {
	if err == nil {
		return
	}

	l.mu.Lock()
	rec := Record{InstanceID: instanceID, Time: l.now(), Err: err}
	h := append(l.history[instanceID], rec)
	if len(h) > l.retention {
		h = h[len(h)-l.retention:]
	}
	l.history[instanceID] = h
	observers := make([]Observer, len(l.observers))
	copy(observers, l.observers)
	l.mu.Unlock()

	for _, o := range observers {
		o.OnSimulationError(rec)
	}
}

// Last returns the most recent record for the instance.
func (l *Log) Last(instanceID string) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	h := l.history[instanceID]
	if len(h) == 0 {
		return Record{}, false
	}
	return h[len(h)-1], true
}

// History returns a copy of the instance's records, oldest first.
func (l *Log) History(instanceID string) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	h := l.history[instanceID]
	if len(h) == 0 {
		return nil
	}
	out := make([]Record, len(h))
	copy(out, h)
	return out
}

// InstanceIDs returns the ids with at least one record, sorted.
func (l *Log) InstanceIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.history))
	for id := range l.history {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the total number of retained records across all instances.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, h := range l.history {
		n += len(h)
	}
	return n
}

// Clear drops the instance's history.
func (l *Log) Clear(instanceID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.history, instanceID)
}

// ClearAll drops every instance's history.
func (l *Log) ClearAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history = make(map[string][]Record)
}

// Subscribe registers an observer. Observers are invoked synchronously from
// Record and must not call back into the log.
func (l *Log) Subscribe(o Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, o)
}

// Unsubscribe removes a previously registered observer.
func (l *Log) Unsubscribe(o Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, existing := range l.observers {
		if existing == o {
			l.observers = append(l.observers[:i], l.observers[i+1:]...)
			return
		}
	}
}
