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

// SettingsUpdater is the controller-owned write side of a service's settings
// channel. Writes are latest-wins : a subscriber that falls behind observes
// the most recent value and skips intermediates.
type SettingsUpdater[S any] struct {
	slot *watch.Slot[S]
}

// Update replaces the service's settings.
func (u *SettingsUpdater[S]) Update(settings S) {
	u.slot.Store(settings)
}

// SettingsNotifier is the service-owned read side of its settings channel.
type SettingsNotifier[S any] struct {
	watcher *watch.Watcher[S]
}

// Latest returns the current settings without blocking.
func (n *SettingsNotifier[S]) Latest() S {
	return n.watcher.Latest()
}

// Next blocks until a settings value this subscriber has not yet observed is
// available. The first call returns the initial settings immediately.
func (n *SettingsNotifier[S]) Next(ctx context.Context) (S, error) {
	return n.watcher.Next(ctx)
}

// newSettingsChannel creates the settings channel seeded with the initial value.
func newSettingsChannel[S any](initial S) (*SettingsUpdater[S], *watch.Slot[S]) {
	slot := watch.NewSlot(initial)
	return &SettingsUpdater[S]{slot: slot}, slot
}
