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
	"errors"
	"sync"
	"time"

	log "github.com/apex/log"
	calendar "github.com/justincpresley/readtrack/util/calendar"
)

// Watcher keeps the unread count of every in-scope book and announces
// each count that moves, including books entering or leaving scope.
// Each refresh first reloads the library from its storage, if any.
type Watcher interface {
	Start()
	Stop()
	Refresh()
	Skip()
	TimeLeft() time.Duration
	Count(string) int
	Chan() chan CountChange
}

type watcher struct {
	library   *Library
	counts    map[string]int
	mtx       sync.Mutex
	statChan  chan CountChange
	scheduler Scheduler
	clock     func() time.Time
	logger    *log.Entry
}

// NewWatcher reads the date from clock, or the wall clock when nil.
func NewWatcher(library *Library, cs *Constants, clock func() time.Time) Watcher {
	if clock == nil {
		clock = time.Now
	}
	w := &watcher{
		library:  library,
		counts:   make(map[string]int),
		statChan: make(chan CountChange, cs.CountChangeChannelSize),
		clock:    clock,
		logger:   log.WithField("module", "readtrack"),
	}
	w.scheduler = NewScheduler(w.Refresh,
		time.Duration(cs.RefreshInterval)*time.Millisecond, cs.RefreshRandomness)
	return w
}

func (w *watcher) Start() { w.scheduler.Start(true) }
func (w *watcher) Stop()  { w.scheduler.Stop() }

// Skip refreshes now instead of waiting out the interval.
func (w *watcher) Skip() { w.scheduler.Skip() }

// TimeLeft is the time until the next scheduled refresh.
func (w *watcher) TimeLeft() time.Duration { return w.scheduler.TimeLeft() }

func (w *watcher) Chan() chan CountChange { return w.statChan }

func (w *watcher) Count(title string) int {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	n, ok := w.counts[title]
	if !ok {
		return Unseen
	}
	return n
}

func (w *watcher) Refresh() {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	if err := w.library.Load(); err != nil && !errors.Is(err, ErrNoStorage) {
		w.logger.Warnf("Unable to reload library: %+v", err)
	}
	today := calendar.Truncate(w.clock())
	seen := make(map[string]bool)
	for _, b := range w.library.InScope(today) {
		seen[b.Title()] = true
		n, err := b.Unread(today)
		if err != nil {
			w.logger.Warnf("Unable to count %q: %+v", b.Title(), err)
			continue
		}
		old, ok := w.counts[b.Title()]
		if !ok {
			old = Unseen
		}
		if old != n {
			w.counts[b.Title()] = n
			w.publish(NewCountChange(b.Title(), old, n))
		}
	}
	for title, old := range w.counts {
		if !seen[title] {
			delete(w.counts, title)
			w.publish(NewCountChange(title, old, Unseen))
		}
	}
}

func (w *watcher) publish(cc CountChange) {
	select {
	case w.statChan <- cc:
	default:
		w.logger.Warnf("Dropped count change for %q, channel full.", cc.Title())
	}
}
