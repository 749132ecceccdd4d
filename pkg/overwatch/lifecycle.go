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

package overwatch

import (
	"sync"
	"time"

	"github.com/nats-io/nuid"
	"github.com/rs/zerolog"

	"github.com/oysterpack/overwatch.go/pkg/service"
)

// EventKind classifies a lifecycle event.
type EventKind string

// Possible EventKind values
const (
	// EventStarted - the service (or the graph) is running
	EventStarted EventKind = "Started"
	// EventSettingsUpdated - a new settings value was written to the service
	EventSettingsUpdated EventKind = "SettingsUpdated"
	// EventStopped - the service (or the graph) terminated; Reason explains why
	EventStopped EventKind = "Stopped"
	// EventFailed - the service (or the graph) failed; Err carries the cause
	EventFailed EventKind = "Failed"
)

// LifecycleEvent is an externally observable transition of a service or the graph.
// Graph-level events have an empty ServiceID.
//
// Per-service events are observed in state machine order by any one
// subscriber; across services no ordering is promised.
type LifecycleEvent struct {
	EventID   string
	ServiceID string
	Kind      EventKind
	Reason    service.StopReason
	Err       error
	Time      time.Time
}

// subscriber channels are buffered; a subscriber that stops draining has
// events dropped rather than stalling the controller
const lifecycleBufferSize = 64

type lifecycleBroadcaster struct {
	logger zerolog.Logger

	mutex       sync.Mutex
	closed      bool
	subscribers []chan LifecycleEvent
}

func newLifecycleBroadcaster(logger zerolog.Logger) *lifecycleBroadcaster {
	return &lifecycleBroadcaster{logger: logger}
}

func (b *lifecycleBroadcaster) subscribe() <-chan LifecycleEvent {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	events := make(chan LifecycleEvent, lifecycleBufferSize)
	if b.closed {
		close(events)
		return events
	}
	b.subscribers = append(b.subscribers, events)
	return events
}

func (b *lifecycleBroadcaster) publish(event LifecycleEvent) {
	event.EventID = nuid.Next()
	event.Time = time.Now()

	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return
	}
	for _, subscriber := range b.subscribers {
		select {
		case subscriber <- event:
		default:
			b.logger.Warn().
				Str("svc", event.ServiceID).
				Str("kind", string(event.Kind)).
				Msg("lifecycle subscriber is not draining - event dropped")
		}
	}
}

func (b *lifecycleBroadcaster) close() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, subscriber := range b.subscribers {
		close(subscriber)
	}
	b.subscribers = nil
}

// ServiceExit reports one service's terminal state.
type ServiceExit struct {
	ServiceID string
	State     service.State
	Reason    service.StopReason
	Err       error
}

// ExitStatus summarises every service's terminal state after graph shutdown.
type ExitStatus struct {
	InstanceID string
	Services   []ServiceExit
}

// Clean returns true if every service terminated without failure.
func (s ExitStatus) Clean() bool {
	for _, exit := range s.Services {
		if !exit.State.Terminated() {
			return false
		}
	}
	return true
}

// Failures returns the services that ended in the Failed state.
func (s ExitStatus) Failures() []ServiceExit {
	var failures []ServiceExit
	for _, exit := range s.Services {
		if exit.State.Failed() {
			failures = append(failures, exit)
		}
	}
	return failures
}
