/*
 Copyright (C) 2022-2025, The readtrack Go Library Authors

 This file is part of readtrack: A Go Library for Daily Reading Plans.

 This library is free software; you can redistribute it and/or
 modify it under the terms of the GNU Lesser General Public
 License as published by the Free Software Foundation; either
 version 2.1 of the License, or any later version.

 This library is distributed in the hope that it will be useful,
 but WITHOUT ANY WARRANTY; without even the implied warranty of
 MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
 See the GNU Lesser General Public License for more details.

 A copy of the GNU Lesser General Public License is provided by this
 library under LICENSE.md. To see more details about the authors and
 contributors, please see AUTHORS.md. If absent, Both of which can be
 found within the GitHub repository:
          https://github.com/justincpresley/readtrack
*/

package readtrack

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	bitset "github.com/justincpresley/readtrack/util/bitset"
	calendar "github.com/justincpresley/readtrack/util/calendar"
)

var (
	ErrBook          = errors.New("readtrack: malformed book record")
	ErrDuplicateBook = errors.New("readtrack: book already in library")
	ErrUnknownBook   = errors.New("readtrack: no such book")
	ErrNoStorage     = errors.New("readtrack: library has no storage")
)

// Record is the persisted form of a Book.
type Record struct {
	Title            string `json:"title"`
	ReadingStartDate string `json:"readingStartDate"`
	ReadingEndDate   string `json:"readingEndDate,omitempty"`
	ValidYear        int    `json:"validYear"`
	Read             string `json:"read"`
}

// Book tracks which days of its reading plan have been read. All methods
// are safe for concurrent use.
type Book struct {
	mtx       sync.Mutex
	title     string
	start     time.Time
	end       time.Time // zero when open ended
	validYear int
	read      *bitset.BitSet
}

func NewBook(title string, start time.Time, constants *Constants) *Book {
	return &Book{
		title: title,
		start: calendar.Truncate(start),
		read:  bitset.NewSize(int(constants.ReadSetSize)),
	}
}

// ParseBook builds a book from its stored record. The read set must hold
// exactly constants.ReadSetSize bytes; an empty one starts all unread.
func ParseBook(rec Record, constants *Constants) (*Book, error) {
	if rec.Title == "" {
		return nil, fmt.Errorf("%w: missing title", ErrBook)
	}
	start, err := calendar.Parse(rec.ReadingStartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrBook, rec.Title, err)
	}
	b := &Book{title: rec.Title, start: start, validYear: rec.ValidYear}
	if rec.ReadingEndDate != "" {
		if b.end, err = calendar.Parse(rec.ReadingEndDate); err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrBook, rec.Title, err)
		}
		if b.end.Before(b.start) {
			return nil, fmt.Errorf("%w: %q ends before it starts", ErrBook, rec.Title)
		}
	}
	if rec.Read == "" {
		b.read = bitset.NewSize(int(constants.ReadSetSize))
	} else if b.read, err = bitset.ParseSize(rec.Read, int(constants.ReadSetSize)); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrBook, rec.Title, err)
	}
	return b, nil
}

func ParseBookBytes(buf []byte, constants *Constants) (*Book, error) {
	var rec Record
	if err := json.Unmarshal(buf, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBook, err)
	}
	return ParseBook(rec, constants)
}

func (b *Book) Record() Record {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	rec := Record{
		Title:            b.title,
		ReadingStartDate: calendar.Format(b.start),
		ValidYear:        b.validYear,
		Read:             b.read.String(),
	}
	if !b.end.IsZero() {
		rec.ReadingEndDate = calendar.Format(b.end)
	}
	return rec
}

func (b *Book) Bytes() ([]byte, error) {
	return json.Marshal(b.Record())
}

func (b *Book) Title() string { return b.title }

func (b *Book) Start() time.Time {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.start
}

func (b *Book) End() (time.Time, bool) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.end, !b.end.IsZero()
}

// SetEnd closes the reading plan on end. The zero time reopens it.
func (b *Book) SetEnd(end time.Time) error {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	if end.IsZero() {
		b.end = time.Time{}
		return nil
	}
	end = calendar.Truncate(end)
	if end.Before(b.start) {
		return fmt.Errorf("%w: %q ends before it starts", ErrBook, b.title)
	}
	b.end = end
	return nil
}

func (b *Book) ValidYear() int {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.validYear
}

func (b *Book) SetValidYear(year int) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.validYear = year
}

// InScope reports whether the book may be read in now's calendar year.
func (b *Book) InScope(now time.Time) bool {
	return calendar.IsYearValidAt(b.ValidYear(), now)
}

func (b *Book) InRange(date time.Time) bool {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	if b.end.IsZero() {
		return !calendar.Truncate(date).Before(b.start)
	}
	return calendar.InRange(date, b.start, b.end)
}

// Day returns date's position in the reading year, 1 being the start date.
func (b *Book) Day(date time.Time) int {
	return calendar.DayOfReadingYear(b.Start(), date)
}

func (b *Book) IsRead(date time.Time) (bool, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.read.Test(calendar.DayOfReadingYear(b.start, date))
}

// SetRead flags date as read or unread and reports whether the stored
// state changed.
func (b *Book) SetRead(date time.Time, read bool) (bool, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	date = calendar.Truncate(date)
	if !b.end.IsZero() && date.After(b.end) {
		return false, fmt.Errorf("%w: %s is after %q ends", bitset.ErrOutOfRange,
			calendar.Format(date), b.title)
	}
	return b.read.Set(calendar.DayOfReadingYear(b.start, date), read)
}

// last is the final date the book can track: its end date or the last
// day the read set holds, whichever comes first.
func (b *Book) last() time.Time {
	last := b.start.AddDate(0, 0, b.read.Len()-1)
	if !b.end.IsZero() && b.end.Before(last) {
		return b.end
	}
	return last
}

// MarkReadThrough marks every day from the start through date as read
// and returns how many were previously unread.
func (b *Book) MarkReadThrough(date time.Time) (int, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	date = calendar.Truncate(date)
	if date.Before(b.start) {
		return 0, nil
	}
	if last := b.last(); date.After(last) {
		date = last
	}
	marked := 0
	for day := 1; day <= calendar.DayOfReadingYear(b.start, date); day++ {
		changed, err := b.read.Set(day, true)
		if err != nil {
			return marked, err
		}
		if changed {
			marked++
		}
	}
	return marked, nil
}

// Unread counts unread days from the start through date. Dates before
// the start give zero; dates past the last trackable day count up to it.
func (b *Book) Unread(date time.Time) (int, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	date = calendar.Truncate(date)
	if date.Before(b.start) {
		return 0, nil
	}
	if last := b.last(); date.After(last) {
		date = last
	}
	return b.read.UnreadCount(b.start, date)
}

// ClearRead marks every day unread and returns how many were read.
func (b *Book) ClearRead() int {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	n := b.read.Count()
	b.read.Clear()
	return n
}

func (b *Book) ReadCount() int {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.read.Count()
}

// Label is the title shown on the book's tab, with the unread count
// when there is one.
func (b *Book) Label(date time.Time) string {
	n, err := b.Unread(date)
	if err != nil || n == 0 {
		return b.title
	}
	return b.title + " (" + strconv.Itoa(n) + ")"
}
