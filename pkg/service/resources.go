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

	"github.com/rs/zerolog"

	"github.com/oysterpack/overwatch.go/pkg/relay"
)

// RunContext owns the resources a running service task uses : its mailbox
// receiver, settings subscription, state writer, the relay fabric, and the
// service's cancellation context.
//
// All blocking operations exposed here race against Context() - the service
// observes cancellation at its next suspension point and should return.
type RunContext[M, S, St any] struct {
	ctx      context.Context
	mailbox  *relay.Inbound[M]
	settings *SettingsNotifier[S]
	state    *StateUpdater[St]
	fabric   *relay.Fabric
	logger   zerolog.Logger
}

// Context returns the service's cancellation context. It is a child of the
// graph context : graph shutdown cancels it, and so does a targeted stop.
func (rc *RunContext[M, S, St]) Context() context.Context { return rc.ctx }

// Mailbox returns the receive side of the service's mailbox.
func (rc *RunContext[M, S, St]) Mailbox() *relay.Inbound[M] { return rc.mailbox }

// Settings returns the service's settings subscription.
// The first Next returns the initial settings.
func (rc *RunContext[M, S, St]) Settings() *SettingsNotifier[S] { return rc.settings }

// UpdateState publishes a new state value. Every value is delivered to the
// state operator in write order; the call suspends while the operator is behind.
func (rc *RunContext[M, S, St]) UpdateState(state St) error {
	return rc.state.Update(rc.ctx, state)
}

// State returns the most recently published state value.
func (rc *RunContext[M, S, St]) State() St { return rc.state.Latest() }

// Fabric returns the relay fabric. Obtain a typed send handle to a peer with
// relay.To :
//
//	pong, err := relay.To[PongMessage](rc.Context(), rc.Fabric(), pongID)
//
// The lookup waits for the fabric-ready gate, so a service may request peers
// as soon as it starts regardless of spawn order.
func (rc *RunContext[M, S, St]) Fabric() *relay.Fabric { return rc.fabric }

// Logger returns the service's contextual logger.
func (rc *RunContext[M, S, St]) Logger() zerolog.Logger { return rc.logger }

// StopTriggered returns true if the service has been triggered to stop.
func (rc *RunContext[M, S, St]) StopTriggered() bool { return rc.ctx.Err() != nil }
