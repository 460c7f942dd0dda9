package ledger

import (
	"cmp"
	"slices"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-fx/internal/types"
)

type entry[T types.Row] struct {
	row T
	fp  string
	seq uint64
}

// Stream is an append-merge log of one kind of gateway record. Rows are kept
// ordered by event time and then fingerprint, so merging the same batches in
// any order or any number of times gives the same stream. Stream is not safe
// for concurrent use; Ledger serializes access.
type Stream[T types.Row] struct {
	entries []entry[T]
	seen    map[string]struct{}
	seq     uint64
}

// NewStream creates an empty stream.
func NewStream[T types.Row]() *Stream[T] {
	return &Stream[T]{
		entries: nil,
		seen:    make(map[string]struct{}),
		seq:     0,
	}
}

// Merge appends rows, drops exact duplicates and re-sorts. It returns the
// number of rows that were new.
func (s *Stream[T]) Merge(rows []T) int {
	added := 0

	for _, row := range rows {
		fp := row.Fingerprint()
		if _, ok := s.seen[fp]; ok {
			continue
		}

		s.seq++
		s.seen[fp] = struct{}{}
		s.entries = append(s.entries, entry[T]{row: row, fp: fp, seq: s.seq})
		added++
	}

	if added > 0 {
		slices.SortStableFunc(s.entries, func(a, b entry[T]) int {
			if c := a.row.EventTime().Compare(b.row.EventTime()); c != 0 {
				return c
			}

			return cmp.Compare(a.fp, b.fp)
		})
	}

	return added
}

// Rows returns a copy of all rows in stream order.
func (s *Stream[T]) Rows() []T {
	return s.Select(nil)
}

// Select returns the rows matching pred in stream order. A nil pred matches all.
func (s *Stream[T]) Select(pred func(T) bool) []T {
	out := make([]T, 0, len(s.entries))

	for _, e := range s.entries {
		if pred == nil || pred(e.row) {
			out = append(out, e.row)
		}
	}

	return out
}

// Latest returns the matching row with the greatest event time. Rows sharing
// that time are ordered by when they were first merged.
func (s *Stream[T]) Latest(pred func(T) bool) optional.Option[T] {
	return s.MaxBy(pred, func(a, b T) int { return a.EventTime().Compare(b.EventTime()) })
}

// MaxBy returns the matching row that sorts last under compare, with ties
// broken by insertion order.
func (s *Stream[T]) MaxBy(pred func(T) bool, compare func(a, b T) int) optional.Option[T] {
	var (
		best  *entry[T]
		found bool
	)

	for i := range s.entries {
		e := &s.entries[i]
		if pred != nil && !pred(e.row) {
			continue
		}

		if !found {
			best, found = e, true

			continue
		}

		c := compare(e.row, best.row)
		if c > 0 || (c == 0 && e.seq > best.seq) {
			best = e
		}
	}

	if !found {
		return optional.None[T]()
	}

	return optional.Some(best.row)
}
