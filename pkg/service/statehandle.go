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
	"context"

	"github.com/oysterpack/overwatch.go/pkg/watch"
)

// the operator feed buffers this many state values before writes suspend
const operatorFeedCapacity = 1

// StateUpdater is the service-owned write side of its state channel.
// Each write is published twice :
//   - to the broadcast slot, where external subscribers observe the latest
//     value and may skip intermediates
//   - to the operator feed, which delivers every value in write order and
//     suspends the writer when the operator falls behind
type StateUpdater[St any] struct {
	slot *watch.Slot[St]
	feed chan St

	// optional hook, bumped on every successful write
	onUpdate func()
}

// Update publishes a new state value. It suspends while the operator feed is
// at capacity, and fails with ctx.Err() if the context is done first.
func (u *StateUpdater[St]) Update(ctx context.Context, state St) error {
	select {
	case u.feed <- state:
	case <-ctx.Done():
		return ctx.Err()
	}
	u.slot.Store(state)
	if u.onUpdate != nil {
		u.onUpdate()
	}
	return nil
}

// Latest returns the most recently published state.
func (u *StateUpdater[St]) Latest() St {
	return u.slot.Load()
}

// StateWatcher observes a service's state channel with latest-wins semantics.
type StateWatcher[St any] struct {
	watcher *watch.Watcher[St]
}

// Latest returns the current state without blocking.
func (w *StateWatcher[St]) Latest() St {
	return w.watcher.Latest()
}

// Next blocks until a state value this subscriber has not yet observed is
// available. Returns watch.ErrSlotClosed after the service has stopped and
// the final state was observed.
func (w *StateWatcher[St]) Next(ctx context.Context) (St, error) {
	return w.watcher.Next(ctx)
}

func newStateChannel[St any](initial St) (*StateUpdater[St], *watch.Slot[St]) {
	slot := watch.NewSlot(initial)
	feed := make(chan St, operatorFeedCapacity)
	// the seed counts as a written value : the operator's first run observes it
	feed <- initial
	return &StateUpdater[St]{
		slot: slot,
		feed: feed,
	}, slot
}
