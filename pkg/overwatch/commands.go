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

import "reflect"

// Commands are routed through the controller's own mailbox.
// Reply channels are buffered so the command loop never blocks on a caller
// that gave up waiting.

type command interface {
	name() string
}

type relayCommand struct {
	serviceID string
	reply     chan relayReply
}

func (relayCommand) name() string { return "Relay" }

type relayReply struct {
	msgType reflect.Type
	// the erased relay.Outbound[M]
	sender any
	err    error
}

type updateSettingsCommand struct {
	serviceID string
	value     any
	reply     chan error
}

func (updateSettingsCommand) name() string { return "UpdateSettings" }

type updateAllCommand struct {
	// the aggregate settings value, asserted to A inside the command loop
	aggregate any
	reply     chan error
}

func (updateAllCommand) name() string { return "UpdateAllSettings" }

type stopServiceCommand struct {
	serviceID string
	reply     chan error
}

func (stopServiceCommand) name() string { return "Stop" }

type shutdownCommand struct {
	reply chan error
}

func (shutdownCommand) name() string { return "Shutdown" }

type subscribeLifecycleCommand struct {
	reply chan (<-chan LifecycleEvent)
}

func (subscribeLifecycleCommand) name() string { return "SubscribeLifecycle" }
