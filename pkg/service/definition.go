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
	"io"

	"github.com/rs/zerolog"
)

// Run is the service entry point. It runs until the service stops : it should
// process mailbox messages and settings updates, publish state, and return
// when the run context is cancelled. Returning nil, context.Canceled, or
// context.DeadlineExceeded stops the service normally; returning any other
// error, or panicking, fails it.
type Run[M, S, St any] func(ctx *RunContext[M, S, St]) error

// Definition is the user-supplied service contract.
//
// M is the message type accepted by the service's mailbox, S its settings
// type, and St its state type. Settings and state values are shared by value
// across tasks and must therefore be treated as immutable snapshots.
type Definition[M, S, St any] struct {
	// REQUIRED - identifies the service
	Descriptor *Descriptor

	// OPTIONAL - mailbox capacity; 0 means relay.DefaultMailboxCapacity
	MailboxCapacity int

	// REQUIRED - constructs the initial state from the initial settings.
	// Not used when the operator recovers a persisted state via Loader.
	InitState func(settings S) (St, error)

	// OPTIONAL - constructs the state operator from settings.
	// nil means the NopOperator. The operator is rebuilt on every settings
	// update.
	NewOperator func(settings S) Operator[St]

	// REQUIRED - the service entry point
	Run Run[M, S, St]

	LogSettings
}

// LogSettings groups the log settings for the service
type LogSettings struct {
	// OPTIONAL - used to specify an alternative writer for the service logger
	LogOutput io.Writer

	// OPTIONAL - if not specified then the parent logger's level is used
	LogLevel *zerolog.Level
}

func (d *Definition[M, S, St]) validate() error {
	if d.Descriptor == nil {
		return &DefinitionError{ServiceID: "?", Message: "Descriptor is required"}
	}
	if d.InitState == nil {
		return &DefinitionError{ServiceID: d.Descriptor.ID(), Message: "InitState is required"}
	}
	if d.Run == nil {
		return &DefinitionError{ServiceID: d.Descriptor.ID(), Message: "Run is required"}
	}
	return nil
}

// operator returns the operator for the given settings, defaulting to the NopOperator.
func (d *Definition[M, S, St]) operator(settings S) Operator[St] {
	if d.NewOperator == nil {
		return NopOperator[St]{}
	}
	return d.NewOperator(settings)
}

// initialState recovers a persisted state via the operator's Loader
// capability when available, falling back to InitState.
func (d *Definition[M, S, St]) initialState(settings S, op Operator[St]) (St, error) {
	if loader, ok := op.(Loader[S, St]); ok {
		state, loaded, err := loader.TryLoad(settings)
		if err != nil {
			var zero St
			return zero, err
		}
		if loaded {
			return state, nil
		}
	}
	return d.InitState(settings)
}
