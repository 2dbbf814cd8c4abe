package main

import (
	"errors"
	"math"
	"strconv"
)

var (
	errInvalidNumber     = errors.New("value is not a number")
	errUnknownConnection = errors.New("connection is not a member of this room")
)

// Entry holds one participant's data, server-side.
type Entry struct {
	ConnectionID string
	Name         string
	Number       float64
	HasNumber    bool
}

// entryStore keeps entries in join order so each participant's row stays
// put for the lifetime of its connection. Not safe for concurrent use;
// the owning room serializes access.
type entryStore struct {
	entries []Entry
}

func (s *entryStore) add(connectionID string) {
	s.entries = append(s.entries, Entry{ConnectionID: connectionID})
}

func (s *entryStore) remove(connectionID string) bool {
	dst := s.entries[:0]
	removed := false
	for _, e := range s.entries {
		if e.ConnectionID == connectionID {
			removed = true
			continue
		}
		dst = append(dst, e)
	}
	s.entries = dst
	return removed
}

func (s *entryStore) find(connectionID string) *Entry {
	for i := range s.entries {
		if s.entries[i].ConnectionID == connectionID {
			return &s.entries[i]
		}
	}
	return nil
}

// setName overwrites the owner's name. Reports whether the store changed.
func (s *entryStore) setName(connectionID, value string) (bool, error) {
	e := s.find(connectionID)
	if e == nil {
		return false, errUnknownConnection
	}
	if e.Name == value {
		return false, nil
	}
	e.Name = value
	return true, nil
}

// setNumber parses value and overwrites the owner's number. A value that
// does not parse as a finite real number is rejected and the stored
// number is left untouched.
func (s *entryStore) setNumber(connectionID, value string) (bool, error) {
	e := s.find(connectionID)
	if e == nil {
		return false, errUnknownConnection
	}

	n, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return false, errInvalidNumber
	}

	if e.HasNumber && e.Number == n {
		return false, nil
	}
	e.Number = n
	e.HasNumber = true
	return true, nil
}

// clear sets every entry's number to absent, preserving names. Idempotent.
func (s *entryStore) clear() {
	for i := range s.entries {
		s.entries[i].Number = 0
		s.entries[i].HasNumber = false
	}
}

func (s *entryStore) snapshot() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *entryStore) len() int {
	return len(s.entries)
}

// computeAverage returns the arithmetic mean over entries with a present
// number. The second return is false when no entry has a number, in which
// case the average is undefined rather than zero.
func computeAverage(entries []Entry) (float64, bool) {
	sum := 0.0
	count := 0
	for _, e := range entries {
		if !e.HasNumber {
			continue
		}
		sum += e.Number
		count++
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}
