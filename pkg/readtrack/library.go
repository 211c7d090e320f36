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
	"fmt"
	"sync"
	"time"

	log "github.com/apex/log"
	om "github.com/justincpresley/readtrack/util/orderedmap"
	xxh3 "github.com/zeebo/xxh3"
)

type Config struct {
	StoragePath string
	Bucket      []byte
	LockTimeout time.Duration // how long to wait for another process's lock
	Transient   bool          // only hold the store open during each access
}

func GetBasicConfig(path string) *Config {
	return &Config{
		StoragePath: path,
		Bucket:      []byte("readtrack-books"),
		LockTimeout: time.Second,
	}
}

// Library holds the installed books in the order they were added and
// writes them back to storage on Save.
type Library struct {
	mtx       sync.RWMutex
	books     *om.OrderedMap[string, *Book]
	storage   Database
	sums      map[string]uint64 // fingerprint of what storage holds
	constants *Constants
	logger    *log.Entry
}

func NewLibrary(storage Database, constants *Constants) *Library {
	return &Library{
		books:     om.New[string, *Book](),
		storage:   storage,
		sums:      make(map[string]uint64),
		constants: constants,
		logger:    log.WithField("module", "readtrack"),
	}
}

// OpenLibrary opens the bolt store at config.StoragePath and loads it.
func OpenLibrary(config *Config, constants *Constants) (*Library, error) {
	var storage Database
	var err error
	if config.Transient {
		storage, err = NewTransientBoltDB(config.StoragePath, config.Bucket, config.LockTimeout)
	} else {
		storage, err = NewBoltDB(config.StoragePath, config.Bucket, config.LockTimeout)
	}
	if err != nil {
		return nil, err
	}
	l := NewLibrary(storage, constants)
	if err = l.Load(); err != nil {
		storage.Close()
		return nil, err
	}
	return l, nil
}

// Load brings the library in line with storage. Stored books are added,
// books whose stored record changed since it was last loaded or saved
// are replaced in place, and books deleted from storage are dropped.
// Books never saved are left alone. Records that fail to parse are
// logged and skipped.
func (l *Library) Load() error {
	if l.storage == nil {
		return ErrNoStorage
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()
	stored := make(map[string]bool)
	err := l.storage.ForEach(func(key, value []byte) error {
		stored[string(key)] = true
		b, err := ParseBookBytes(value, l.constants)
		if err != nil {
			l.logger.Warnf("Skipping stored book %q: %+v", key, err)
			return nil
		}
		sum := xxh3.Hash(value)
		if _, ok := l.books.Get(b.Title()); ok {
			if old, known := l.sums[b.Title()]; !known || old == sum {
				return nil
			}
			l.logger.Infof("Reloaded %q.", b.Title())
		}
		l.books.Set(b.Title(), b)
		l.sums[b.Title()] = sum
		return nil
	})
	if err != nil {
		return err
	}
	for title := range l.sums {
		if !stored[title] {
			l.books.Remove(title)
			delete(l.sums, title)
			l.logger.Infof("Dropped %q, no longer stored.", title)
		}
	}
	return nil
}

func (l *Library) Add(b *Book) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if _, ok := l.books.Get(b.Title()); ok {
		return fmt.Errorf("%w: %q", ErrDuplicateBook, b.Title())
	}
	l.books.Set(b.Title(), b)
	l.logger.Infof("Added %q.", b.Title())
	return nil
}

// Put adds b or replaces the book with the same title, keeping its place.
func (l *Library) Put(b *Book) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.books.Set(b.Title(), b)
}

func (l *Library) Get(title string) (*Book, bool) {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return l.books.Get(title)
}

// Remove deletes the book from storage, then from the library. The book
// stays when storage fails.
func (l *Library) Remove(title string) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if _, ok := l.books.Get(title); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBook, title)
	}
	if l.storage != nil {
		if err := l.storage.Remove([]byte(title)); err != nil {
			return err
		}
	}
	l.books.Remove(title)
	delete(l.sums, title)
	l.logger.Infof("Removed %q.", title)
	return nil
}

func (l *Library) Len() int {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return l.books.Len()
}

func (l *Library) Books() []*Book {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return l.books.Values()
}

// InScope returns the books whose valid year allows reading them at now.
func (l *Library) InScope(now time.Time) []*Book {
	var ret []*Book
	for _, b := range l.Books() {
		if b.InScope(now) {
			ret = append(ret, b)
		}
	}
	return ret
}

// Save writes every book whose record differs from what storage holds
// and returns how many were written.
func (l *Library) Save() (int, error) {
	if l.storage == nil {
		return 0, ErrNoStorage
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()
	written := 0
	for e := l.books.Front(); e != nil; e = e.Next() {
		title, b := e.Value.Key, e.Value.Value
		buf, err := b.Bytes()
		if err != nil {
			return written, err
		}
		sum := xxh3.Hash(buf)
		if old, ok := l.sums[title]; ok && old == sum {
			continue
		}
		if err = l.storage.Set([]byte(title), buf); err != nil {
			return written, err
		}
		l.sums[title] = sum
		written++
	}
	if written > 0 {
		l.logger.Infof("Saved %d book(s).", written)
	}
	return written, nil
}

func (l *Library) Close() error {
	if l.storage == nil {
		return nil
	}
	return l.storage.Close()
}
