package proxy

import (
	"errors"
	"fmt"

	"prism/callback"
)

// Stage is the descriptor snapshot produced by one transform's Rewrite.
type Stage struct {
	Transform  string
	Descriptor callback.Descriptor
}

// Record is the ledger entry for one logical or merged registration.
type Record struct {
	ID       int
	Original callback.Descriptor
	Stages   []Stage
	Final    callback.Descriptor
	// Members holds the records folded into this one by a close hook.
	Members []*Record
	// Origin names the transform that created a merged record.
	Origin string
}

// Handle identifies a registration for diagnostics. The zero Handle, returned
// with a Register error, has no descriptor and no stages.
type Handle struct {
	ID   int
	Name string
	rec  *Record
}

// Final returns the descriptor as it stood after the rewrite phase.
func (h Handle) Final() callback.Descriptor {
	if h.rec == nil {
		return callback.Descriptor{}
	}
	return h.rec.Final.Clone()
}

// Stages returns the per-transform snapshots of the registration.
func (h Handle) Stages() []Stage {
	if h.rec == nil {
		return nil
	}
	return append([]Stage(nil), h.rec.Stages...)
}

var errUnknownRecord = errors.New("proxy: record not in ledger")

// Ledger is the set of live records handed to close hooks. It is only
// reachable while the proxy runs its close phase.
type Ledger struct {
	records []*Record
	nextID  int
}

// Records returns the live records in ledger order.
func (l *Ledger) Records() []*Record {
	return append([]*Record(nil), l.records...)
}

func (l *Ledger) add(r *Record) {
	l.nextID++
	r.ID = l.nextID
	l.records = append(l.records, r)
}

func (l *Ledger) indexOf(r *Record) int {
	for i, x := range l.records {
		if x == r {
			return i
		}
	}
	return -1
}

// Merge replaces members with one record whose final descriptor is d. The
// merged record takes the ledger position of the first member.
func (l *Ledger) Merge(origin string, members []*Record, d callback.Descriptor) (*Record, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("proxy: merge of zero records")
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: merged by %s: %w", ErrInvalidDescriptor, origin, err)
	}
	pos := -1
	drop := make(map[*Record]bool, len(members))
	for _, m := range members {
		i := l.indexOf(m)
		if i < 0 {
			return nil, errUnknownRecord
		}
		if pos < 0 || i < pos {
			pos = i
		}
		drop[m] = true
	}
	l.nextID++
	merged := &Record{
		ID:      l.nextID,
		Final:   d,
		Members: append([]*Record(nil), members...),
		Origin:  origin,
	}
	kept := make([]*Record, 0, len(l.records)-len(members)+1)
	for i, r := range l.records {
		if i == pos {
			kept = append(kept, merged)
		}
		if !drop[r] {
			kept = append(kept, r)
		}
	}
	l.records = kept
	return merged, nil
}

// Replace swaps the final descriptor of r, for relabelling or re-wrapping.
func (l *Ledger) Replace(r *Record, d callback.Descriptor) error {
	if l.indexOf(r) < 0 {
		return errUnknownRecord
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDescriptor, err)
	}
	r.Final = d
	return nil
}

// Remove vetoes a record; it will not reach the dispatch adapter.
func (l *Ledger) Remove(r *Record) error {
	i := l.indexOf(r)
	if i < 0 {
		return errUnknownRecord
	}
	l.records = append(l.records[:i], l.records[i+1:]...)
	return nil
}
