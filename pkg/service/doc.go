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

// Package service defines the service contract and the supervisor that owns
// the runtime for exactly one service.
//
// A service is a user-defined, independently scheduled unit with its own
// mailbox, settings, and state :
//
//   - Message  - the type of values accepted by its mailbox
//   - Settings - externally supplied configuration, replaceable at runtime
//   - State    - a snapshot of the service's operational state, constructible
//     from Settings
//   - Operator - an observer constructed from Settings that is invoked with
//     every new State value, typically to persist it
//
// The service lifecycle is New -> Starting -> Running -> Stopping ->
// Terminated, with Failed as the terminal state for errors and panics.
// Each transition is published to state change listeners.
//
// Spawn starts the service task and its state-operator task, and returns a
// Handle through which the controller drives the service.
package service
