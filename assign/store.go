package assign

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"go-rehearse/timeline"
)

// Tolerance is how far a stored onset or offset may drift from the
// timeline and still match
const Tolerance = 5 * time.Millisecond

// ErrNothingToSave means no interval carries a hand label
var ErrNothingToSave = errors.New("no hand assignments to save")

// Record is the on-disk form of one sequence's hand labels
type Record struct {
	MidiHash    string       `json:"midiHash"`
	Assignments []Assignment `json:"assignments"`
}

// Assignment labels one interval. On and Off are milliseconds.
type Assignment struct {
	MidiNote int    `json:"midiNote"`
	On       int64  `json:"on"`
	Off      int64  `json:"off"`
	Hand     string `json:"hand"`
}

// Store keeps hand labels in <dir>/<hash>.json
type Store struct {
	dir       string
	tolerance time.Duration
	log       *zap.Logger
}

// NewStore creates a store rooted at dir
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, tolerance: Tolerance, log: logger.Named("assign")}
}

// SetTolerance overrides the matching tolerance. Non-positive values keep
// the current one.
func (s *Store) SetTolerance(d time.Duration) {
	if d > 0 {
		s.tolerance = d
	}
}

// Path returns the file for a content hash
func (s *Store) Path(hash string) string {
	return filepath.Join(s.dir, hash+".json")
}

// Save writes every labeled interval of tl. It returns ErrNothingToSave
// and leaves disk untouched when nothing is labeled.
func (s *Store) Save(hash string, tl *timeline.Timeline) (int, error) {
	rec := Record{MidiHash: hash}
	for _, iv := range tl.Intervals() {
		if iv.Hand == timeline.HandNone {
			continue
		}
		rec.Assignments = append(rec.Assignments, Assignment{
			MidiNote: int(iv.Pitch),
			On:       iv.On.Milliseconds(),
			Off:      iv.Off.Milliseconds(),
			Hand:     iv.Hand.String(),
		})
	}
	if len(rec.Assignments) == 0 {
		return 0, ErrNothingToSave
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return 0, fmt.Errorf("create %s: %w", s.dir, err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return 0, err
	}

	path := s.Path(hash)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return 0, fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, fmt.Errorf("rename %s: %w", path, err)
	}
	return len(rec.Assignments), nil
}

// Read returns the stored record for hash, or nil when there is none
func (s *Store) Read(hash string) (*Record, error) {
	data, err := os.ReadFile(s.Path(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path(hash), err)
	}
	return &rec, nil
}

// Load merges stored labels onto tl and returns how many were applied.
// A missing or unreadable file counts as no assignments. Entries with an
// unknown hand, or matching no interval, are skipped.
func (s *Store) Load(hash string, tl *timeline.Timeline) int {
	rec, err := s.Read(hash)
	if err != nil {
		s.log.Warn("ignoring assignment file", zap.String("hash", hash), zap.Error(err))
		return 0
	}
	if rec == nil {
		return 0
	}
	if rec.MidiHash != hash {
		s.log.Warn("assignment hash mismatch", zap.String("want", hash), zap.String("got", rec.MidiHash))
		return 0
	}

	intervals := tl.Intervals()
	applied := 0
	for _, a := range rec.Assignments {
		hand, ok := timeline.ParseHand(a.Hand)
		if !ok || a.MidiNote < 0 || a.MidiNote > 127 {
			continue
		}
		on := time.Duration(a.On) * time.Millisecond
		off := time.Duration(a.Off) * time.Millisecond
		if i := closest(intervals, uint8(a.MidiNote), on, off, s.tolerance); i >= 0 {
			tl.SetHand(i, hand)
			applied++
		}
	}
	s.log.Debug("loaded assignments", zap.String("hash", hash), zap.Int("applied", applied), zap.Int("stored", len(rec.Assignments)))
	return applied
}

// closest finds the interval of pitch whose onset and offset are both
// within tol, preferring the smallest total drift
func closest(intervals []timeline.NoteInterval, pitch uint8, on, off, tol time.Duration) int {
	best, bestDrift := -1, time.Duration(0)
	for i, iv := range intervals {
		if iv.Pitch != pitch {
			continue
		}
		dOn, dOff := absDur(iv.On-on), absDur(iv.Off-off)
		if dOn > tol || dOff > tol {
			continue
		}
		if best < 0 || dOn+dOff < bestDrift {
			best, bestDrift = i, dOn+dOff
		}
	}
	return best
}

func absDur(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
