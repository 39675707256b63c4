// Package queue implements the single thread-safe outbound FIFO with
// priority insertion, per-entry retry counters, and the UDP seen-ids
// dedup side-table.
package queue

import (
	"sync"
	"time"

	"github.com/ipk24chat/client/internal/wire"
)

// Entry is one queued outbound message, or one "seen id" dedup marker.
// It is an intrusive singly-linked list node: Next is owned by the
// MessageQueue it currently lives in.
type Entry struct {
	Buf       *wire.Buffer
	SendCount uint8
	Confirmed bool
	Flags     wire.MessageFlag
	Kind      wire.MessageKind
	SentAt    time.Time // set by MarkSent; zero until the first transmit

	// IDHigh/IDLow identify a seen-ids marker pushed by PushIDOnly; for a
	// real outbound entry these are unused (the id lives in Buf).
	IDHigh, IDLow byte

	next *Entry
}

// Queue is an intrusive singly-linked FIFO guarded by an explicit
// lock/unlock pair, so callers (notably the FSM) can hold it across a
// multi-step transaction instead of being confined to one call.
type Queue struct {
	mu         sync.Mutex
	first, last *Entry
	length     int
}

// New returns an empty Queue.
func New() *Queue { return &Queue{} }

// Lock acquires the queue mutex. Paired calls to Lock/Unlock let callers
// hold the queue across several operations atomically.
func (q *Queue) Lock() { q.mu.Lock() }

// Unlock releases the queue mutex.
func (q *Queue) Unlock() { q.mu.Unlock() }

// PushBack deep-copies buf into a new entry appended at the tail.
// Caller must hold the lock.
func (q *Queue) PushBack(buf *wire.Buffer, flags wire.MessageFlag, kind wire.MessageKind) *Entry {
	e := newEntry(buf, flags, kind)
	if q.last == nil {
		q.first, q.last = e, e
	} else {
		q.last.next = e
		q.last = e
	}
	q.length++
	return e
}

// PushFront deep-copies buf into a new entry inserted at the head, used
// by the Receiver to cut CONFIRM and confirmation-bearing REPLY
// responses in front of any currently queued user traffic.
// Caller must hold the lock.
func (q *Queue) PushFront(buf *wire.Buffer, flags wire.MessageFlag, kind wire.MessageKind) *Entry {
	e := newEntry(buf, flags, kind)
	e.next = q.first
	q.first = e
	if q.last == nil {
		q.last = e
	}
	q.length++
	return e
}

// PushIDOnly records (kind, high, low) in the queue's own linked list as
// a dedup marker, used by the Receiver to recognize a retransmitted
// inbound UDP frame it has already handled. Caller must hold the lock.
func (q *Queue) PushIDOnly(high, low byte, kind wire.MessageKind) {
	e := &Entry{Kind: kind, IDHigh: high, IDLow: low}
	if q.last == nil {
		q.first, q.last = e, e
	} else {
		q.last.next = e
		q.last = e
	}
	q.length++
}

func newEntry(buf *wire.Buffer, flags wire.MessageFlag, kind wire.MessageKind) *Entry {
	owned := wire.NewBuffer()
	owned.Append(buf.Bytes()...)
	return &Entry{Buf: owned, Flags: flags, Kind: kind}
}

// Peek returns the head entry without removing it, or nil if empty.
// Caller must hold the lock.
func (q *Queue) Peek() *Entry { return q.first }

// PopFront removes and returns the head entry, or nil if empty.
// Caller must hold the lock.
func (q *Queue) PopFront() *Entry {
	if q.first == nil {
		return nil
	}
	e := q.first
	q.first = e.next
	if q.first == nil {
		q.last = nil
	}
	e.next = nil
	q.length--
	return e
}

// IsEmpty reports whether the queue has no entries. Caller must hold the lock.
func (q *Queue) IsEmpty() bool { return q.first == nil }

// Len returns the number of entries. Caller must hold the lock.
func (q *Queue) Len() int { return q.length }

// ContainsID linearly scans for a prior PushIDOnly/entry marker matching
// (kind, high, low). Caller must hold the lock.
func (q *Queue) ContainsID(kind wire.MessageKind, high, low byte) bool {
	for e := q.first; e != nil; e = e.next {
		if e.Kind == kind && e.IDHigh == high && e.IDLow == low {
			return true
		}
	}
	return false
}

// SetHeadMsgID patches bytes [1:3] of the head entry's buffer with id in
// big-endian order — the Sender's finalize-for-wire step, run immediately
// before each transmission so retransmissions keep the same id.
// Caller must hold the lock.
func (q *Queue) SetHeadMsgID(id uint16) {
	if q.first == nil {
		return
	}
	q.first.Buf.PatchUint16BE(1, id)
	q.first.IDHigh = byte(id >> 8)
	q.first.IDLow = byte(id)
}

// SetHeadFlags overwrites the head entry's flags. Caller must hold the lock.
func (q *Queue) SetHeadFlags(f wire.MessageFlag) {
	if q.first != nil {
		q.first.Flags = f
	}
}

// HeadFlags returns the head entry's flags, or wire.FlagNone if empty.
// Caller must hold the lock.
func (q *Queue) HeadFlags() wire.MessageFlag {
	if q.first == nil {
		return wire.FlagNone
	}
	return q.first.Flags
}

// HeadKind returns the head entry's kind. Caller must hold the lock.
func (q *Queue) HeadKind() wire.MessageKind {
	if q.first == nil {
		return wire.KindUnknown
	}
	return q.first.Kind
}

// MarkSent increments the head entry's send counter and stamps SentAt with
// now. Caller must hold the lock.
func (q *Queue) MarkSent(now time.Time) {
	if q.first != nil {
		q.first.SendCount++
		q.first.SentAt = now
	}
}

// HeadSentAt returns the head entry's SentAt, or the zero time if empty or
// never sent. Caller must hold the lock.
func (q *Queue) HeadSentAt() time.Time {
	if q.first == nil {
		return time.Time{}
	}
	return q.first.SentAt
}

// MarkHeadConfirmed flags the head entry as confirmed, without removing
// it — AUTH stays queued-but-confirmed until its REPLY arrives.
// Caller must hold the lock.
func (q *Queue) MarkHeadConfirmed() {
	if q.first != nil {
		q.first.Confirmed = true
	}
}

// HeadConfirmed reports whether the head entry has been marked confirmed.
// Caller must hold the lock.
func (q *Queue) HeadConfirmed() bool {
	return q.first != nil && q.first.Confirmed
}

// HeadID returns the head entry's (IDHigh, IDLow), or ok=false if empty.
// Caller must hold the lock.
func (q *Queue) HeadID() (high, low byte, ok bool) {
	if q.first == nil {
		return 0, 0, false
	}
	return q.first.IDHigh, q.first.IDLow, true
}

// Drain removes every entry from the queue, returning none of them —
// used by /exit and SIGINT handling to purge pending user traffic before
// enqueuing a final BYE. Caller must hold the lock.
func (q *Queue) Drain() {
	q.first, q.last = nil, nil
	q.length = 0
}
