package raft

import "fmt"

// Log is the ordered, append-mostly entry store (component C1). Indices
// are 1-based; index 0 denotes "before the log". LastTerm of an empty log
// is 0.
//
// Log never mutates visible state before the corresponding Saver callback
// returns successfully: append delegates to PushBack first, and pop_back/
// pop_front delegate to the matching callback first. If the callback fails
// with ErrShutdown, the operation fails and visible state is unchanged.
type Log struct {
	saver Saver
	// entries holds the log's current contiguous run. entries[0] occupies
	// index firstIdx.
	entries []LogEntry
	// firstIdx is the index entries[0] holds. Starts at 1; advances when
	// PopFront trims the head.
	firstIdx uint64
}

// NewLog returns an empty log backed by saver.
func NewLog(saver Saver) *Log {
	return &Log{saver: saver, firstIdx: 1}
}

// LastIdx returns the index of the newest entry, or 0 if the log is empty.
func (l *Log) LastIdx() uint64 {
	if len(l.entries) == 0 {
		return l.firstIdx - 1
	}
	return l.firstIdx + uint64(len(l.entries)) - 1
}

// LastTerm returns the term of the newest entry, or 0 if the log is empty.
func (l *Log) LastTerm() Term {
	if len(l.entries) == 0 {
		return 0
	}
	return l.entries[len(l.entries)-1].Term
}

// Count returns the number of entries currently held (after any pop_front).
func (l *Log) Count() int {
	return len(l.entries)
}

// Get returns the entry at idx, or ok=false if idx is out of the log's
// current range (including idx == 0).
func (l *Log) Get(idx uint64) (entry LogEntry, ok bool) {
	if idx == 0 || idx < l.firstIdx || idx > l.LastIdx() {
		return LogEntry{}, false
	}
	return l.entries[idx-l.firstIdx], true
}

// Slice returns up to count entries starting at from. It never returns
// entries outside the log's current range; a from before the log's first
// index is clamped forward, and a from past the log's end returns nil.
func (l *Log) Slice(from uint64, count int) []LogEntry {
	if count <= 0 || len(l.entries) == 0 {
		return nil
	}
	if from < l.firstIdx {
		from = l.firstIdx
	}
	if from > l.LastIdx() {
		return nil
	}
	start := from - l.firstIdx
	end := start + uint64(count)
	if end > uint64(len(l.entries)) {
		end = uint64(len(l.entries))
	}
	out := make([]LogEntry, end-start)
	copy(out, l.entries[start:end])
	return out
}

// Append durably appends entry and makes it visible at the returned index.
func (l *Log) Append(entry LogEntry) (idx uint64, err error) {
	idx = l.LastIdx() + 1
	if err := l.saver.PushBack(entry, idx); err != nil {
		return 0, err
	}
	l.entries = append(l.entries, entry)
	return idx, nil
}

// PopBack removes the newest entry. It refuses to pop an entry at or below
// commitIdx: that condition is treated as an invariant violation and
// reported as ErrShutdown rather than a plain error, since a committed
// entry must never be invalidated.
func (l *Log) PopBack(commitIdx uint64) error {
	if len(l.entries) == 0 {
		return nil
	}
	idx := l.LastIdx()
	if idx <= commitIdx {
		return fmt.Errorf("raft: pop_back at idx %d at or below commit_idx %d: %w: %w", idx, commitIdx, errInvariantViolation, ErrShutdown)
	}
	entry := l.entries[len(l.entries)-1]
	if err := l.saver.PopBack(entry, idx); err != nil {
		return err
	}
	l.entries = l.entries[:len(l.entries)-1]
	return nil
}

// PopFront removes the oldest entry. Used only for prospective compaction;
// nothing in this package triggers it on its own.
func (l *Log) PopFront() error {
	if len(l.entries) == 0 {
		return nil
	}
	entry := l.entries[0]
	idx := l.firstIdx
	if err := l.saver.PopFront(entry, idx); err != nil {
		return err
	}
	l.entries = l.entries[1:]
	l.firstIdx++
	return nil
}
