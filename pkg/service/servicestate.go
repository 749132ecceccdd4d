// Copyright (c) 2017 OysterPack, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package service

import (
	"fmt"
	"sync"
	"time"
)

// StateChangeListener is a channel used to listen for service state changes.
// State changes are delivered in state machine order. After a terminal state
// is delivered the channel is closed.
type StateChangeListener <-chan State

// listener channels are buffered to hold every possible transition, so
// notification never blocks on a slow subscriber
const listenerBufferSize = 8

// ServiceState tracks the service's lifecycle state in a concurrency safe manner.
// Use NewServiceState to construct instances.
type ServiceState struct {
	mutex        sync.RWMutex
	state        State
	failureCause error
	timestamp    time.Time

	// cleared once a terminal state has been delivered
	listeners []chan State
}

// NewServiceState initializes the state timestamp to now
func NewServiceState() *ServiceState {
	return &ServiceState{
		timestamp: time.Now(),
	}
}

func (s *ServiceState) String() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.failureCause != nil {
		return fmt.Sprintf("State:%v, Timestamp:%v, FailureCause:%v", s.state, s.timestamp, s.failureCause)
	}
	return fmt.Sprintf("State:%v, Timestamp:%v", s.state, s.timestamp)
}

// State returns the current state along with the time it was entered
func (s *ServiceState) State() (State, time.Time) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state, s.timestamp
}

// FailureCause returns the error that caused this service to fail.
// Returns nil if the service has not failed.
func (s *ServiceState) FailureCause() error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.failureCause
}

// SetState transitions to the specified state.
// If the current state already matches, then false is returned with no error.
// If the transition is illegal, then the state is not changed and an
// InvalidStateTransition error is returned.
func (s *ServiceState) SetState(state State) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.state == state {
		return false, nil
	}
	if !s.state.ValidTransition(state) {
		return false, &InvalidStateTransition{From: s.state, To: state}
	}
	s.state = state
	s.timestamp = time.Now()
	if state == Failed && s.failureCause == nil {
		s.failureCause = UnknownFailureCause{}
	}
	s.notify(state)
	return true, nil
}

// Failed transitions to the Failed state with the specified cause.
// If err is nil, then the cause is recorded as UnknownFailureCause.
// If the service is already Failed, then the cause is updated if err is not
// nil, but listeners are not re-notified.
func (s *ServiceState) Failed(err error) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state == Failed {
		if err != nil {
			s.failureCause = err
		}
		return false
	}
	if !s.state.ValidTransition(Failed) {
		return false
	}
	s.state = Failed
	s.timestamp = time.Now()
	if err != nil {
		s.failureCause = err
	} else {
		s.failureCause = UnknownFailureCause{}
	}
	s.notify(Failed)
	return true
}

func (s *ServiceState) Starting() (bool, error) { return s.SetState(Starting) }

func (s *ServiceState) Running() (bool, error) { return s.SetState(Running) }

func (s *ServiceState) Stopping() (bool, error) { return s.SetState(Stopping) }

func (s *ServiceState) Terminated() (bool, error) { return s.SetState(Terminated) }

// NewStateChangeListener returns a channel on which every subsequent state
// change is delivered. If the service is already stopped, then the terminal
// state is delivered and the channel closed immediately.
func (s *ServiceState) NewStateChangeListener() StateChangeListener {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	l := make(chan State, listenerBufferSize)
	if s.state.Stopped() {
		l <- s.state
		close(l)
		return l
	}
	s.listeners = append(s.listeners, l)
	return l
}

// notify must be invoked with the mutex held. Listener channels are buffered
// to hold more transitions than the lifecycle can produce, so sends never
// block; a listener that has somehow filled its buffer is dropped.
func (s *ServiceState) notify(state State) {
	for i, l := range s.listeners {
		select {
		case l <- state:
		default:
			close(l)
			s.listeners[i] = nil
		}
	}
	compacted := s.listeners[:0]
	for _, l := range s.listeners {
		if l != nil {
			compacted = append(compacted, l)
		}
	}
	s.listeners = compacted

	if state.Stopped() {
		for _, l := range s.listeners {
			close(l)
		}
		s.listeners = nil
	}
}
