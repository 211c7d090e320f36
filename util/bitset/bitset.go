package bitset

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	calendar "github.com/justincpresley/readtrack/util/calendar"
)

const (
	DefaultSize = 96  // bytes
	MaxDays     = 366 // longest reading year
)

var (
	ErrFormat       = errors.New("bitset: malformed hex string")
	ErrOutOfRange   = errors.New("bitset: day out of range")
	ErrInvalidRange = errors.New("bitset: start date is after current date")
)

// BitSet holds one read flag per day of a reading year. Day d lives at
// bit (d-1)%8 of the byte picked by index. The layout is persisted through
// String and must stay stable across versions.
//
// A BitSet is not safe for concurrent use.
type BitSet struct {
	set []uint8
}

func New() *BitSet {
	return NewSize(DefaultSize)
}

// NewSize returns an empty set backed by n bytes.
func NewSize(n int) *BitSet {
	return &BitSet{set: make([]uint8, n)}
}

// Parse reads the hex form produced by String for a set of DefaultSize
// bytes. The high nibble of each byte comes first.
func Parse(s string) (*BitSet, error) {
	return ParseSize(s, DefaultSize)
}

// ParseSize is Parse for a set backed by n bytes. Any length other than
// 2*n hex digits is a format error.
func ParseSize(s string, n int) (*BitSet, error) {
	if len(s) != 2*n {
		return nil, fmt.Errorf("%w: %d hex digits, want %d", ErrFormat, len(s), 2*n)
	}
	buf, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return &BitSet{set: buf}, nil
}

// Len is the number of days the set can track.
func (b *BitSet) Len() int {
	if n := len(b.set) * 8; n < MaxDays {
		return n
	}
	return MaxDays
}

// Size is the number of backing bytes.
func (b *BitSet) Size() int {
	return len(b.set)
}

func (b *BitSet) index(day int) int {
	n := len(b.set)
	return n - ((n*8 - day) / 8) - 1
}

func (b *BitSet) position(day int) (int, uint8, error) {
	if day < 1 || day > b.Len() {
		return 0, 0, fmt.Errorf("%w: %d not in [1, %d]", ErrOutOfRange, day, b.Len())
	}
	return b.index(day), uint8(1) << ((day - 1) % 8), nil
}

func (b *BitSet) Test(day int) (bool, error) {
	i, mask, err := b.position(day)
	if err != nil {
		return false, err
	}
	return b.set[i]&mask != 0, nil
}

// Set marks day as read or unread and reports whether anything changed.
func (b *BitSet) Set(day int, read bool) (bool, error) {
	i, mask, err := b.position(day)
	if err != nil {
		return false, err
	}
	if (b.set[i]&mask != 0) == read {
		return false, nil
	}
	b.set[i] ^= mask
	return true, nil
}

// UnreadCount walks every date from start through current inclusive and
// counts the ones whose reading-year day is unread.
func (b *BitSet) UnreadCount(start, current time.Time) (int, error) {
	start, current = calendar.Truncate(start), calendar.Truncate(current)
	if start.After(current) {
		return 0, fmt.Errorf("%w: %s > %s", ErrInvalidRange,
			calendar.Format(start), calendar.Format(current))
	}
	count := 0
	for d := start; !d.After(current); d = d.AddDate(0, 0, 1) {
		read, err := b.Test(calendar.DayOfReadingYear(start, d))
		if err != nil {
			return 0, err
		}
		if !read {
			count++
		}
	}
	return count, nil
}

// Count returns the number of trackable days marked read.
func (b *BitSet) Count() int {
	n := 0
	for d := 1; d <= b.Len(); d++ {
		if b.set[b.index(d)]&(uint8(1)<<((d-1)%8)) != 0 {
			n++
		}
	}
	return n
}

// Clear marks every day unread.
func (b *BitSet) Clear() {
	b.set = make([]uint8, len(b.set))
}

// String encodes the set as lowercase hex, two digits per byte.
func (b *BitSet) String() string {
	return hex.EncodeToString(b.set)
}
