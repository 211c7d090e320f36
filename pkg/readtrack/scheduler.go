package readtrack

import (
	"math/rand"
	"sync"
	"time"
)

type action int

const (
	actionStop action = iota
	actionSkip
)

// Scheduler calls a function once per interval, each interval stretched
// by a random share of up to randomness.
type Scheduler interface {
	Start(bool)
	Stop()
	Skip()
	TimeLeft() time.Duration
}

type scheduler struct {
	function   func()
	interval   time.Duration
	randomness float32
	actions    chan action
	mtx        sync.Mutex
	deadline   time.Time
	done       chan struct{}
}

func NewScheduler(function func(), interval time.Duration, randomness float32) Scheduler {
	return &scheduler{
		function:   function,
		interval:   interval,
		randomness: randomness,
		actions:    make(chan action, 3),
	}
}

func (s *scheduler) Start(execute bool) {
	s.done = make(chan struct{})
	go s.target(execute)
}

// Stop waits for a running call to return. It does nothing unless
// started.
func (s *scheduler) Stop() {
	if s.done == nil {
		return
	}
	s.actions <- actionStop
	<-s.done
	s.done = nil
}

// Skip calls the function now and restarts the interval.
func (s *scheduler) Skip() { s.actions <- actionSkip }

func (s *scheduler) TimeLeft() time.Duration {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return time.Until(s.deadline)
}

func (s *scheduler) next() time.Duration {
	d := AddRandomness(s.interval, s.randomness)
	s.mtx.Lock()
	s.deadline = time.Now().Add(d)
	s.mtx.Unlock()
	return d
}

func (s *scheduler) target(execute bool) {
	defer close(s.done)
	if execute {
		s.function()
	}
	timer := time.NewTimer(s.next())
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			s.function()
			timer.Reset(s.next())
		case a := <-s.actions:
			switch a {
			case actionStop:
				return
			case actionSkip:
				s.function()
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(s.next())
			}
		}
	}
}

func AddRandomness(value time.Duration, randomness float32) time.Duration {
	spread := int64(float32(value) * randomness)
	if spread <= 0 {
		return value
	}
	return value + time.Duration(rand.Int63n(spread))
}
