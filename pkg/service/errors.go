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
	"reflect"
	"time"
)

// InvalidStateTransition indicates an invalid lifecycle transition was attempted
type InvalidStateTransition struct {
	From State
	To   State
}

func (e *InvalidStateTransition) Error() string {
	return fmt.Sprintf("InvalidStateTransition: %v -> %v", e.From, e.To)
}

// IllegalStateError indicates an operation was attempted in the wrong lifecycle state
type IllegalStateError struct {
	State
	Message string
}

func (e *IllegalStateError) Error() string {
	if e.Message == "" {
		return e.State.String()
	}
	return fmt.Sprintf("%v : %v", e.State, e.Message)
}

// UnknownFailureCause indicates that the service is in a Failed state, but the failure cause is unknown.
type UnknownFailureCause struct{}

func (e UnknownFailureCause) Error() string {
	return "UnknownFailureCause"
}

// PanicError wraps a trapped panic along with supplemental info about where it occurred
type PanicError struct {
	Panic interface{}
	// additional info
	Message string
}

func (e *PanicError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("panic: %v : %v", e.Panic, e.Message)
	}
	return fmt.Sprintf("panic: %v", e.Panic)
}

// ServiceError contains the error and the state the service was in when the error occurred
type ServiceError struct {
	// State in which the error occurred
	State
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%v : %v", e.State, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// ShutdownTimeoutError indicates the service did not stop within the shutdown
// grace period and was abandoned.
type ShutdownTimeoutError struct {
	ServiceID   string
	GracePeriod time.Duration
}

func (e *ShutdownTimeoutError) Error() string {
	return fmt.Sprintf("service %v did not stop within the %v grace period", e.ServiceID, e.GracePeriod)
}

// SettingsTypeError indicates a settings update whose value type does not
// match the service's settings type.
type SettingsTypeError struct {
	ServiceID  string
	Registered reflect.Type
	Requested  reflect.Type
}

func (e *SettingsTypeError) Error() string {
	return fmt.Sprintf("wrong settings type for service %v : registered %v, requested %v", e.ServiceID, e.Registered, e.Requested)
}

// StateTypeError indicates a state subscription whose requested type does not
// match the service's state type.
type StateTypeError struct {
	ServiceID  string
	Registered reflect.Type
	Requested  reflect.Type
}

func (e *StateTypeError) Error() string {
	return fmt.Sprintf("wrong state type for service %v : registered %v, requested %v", e.ServiceID, e.Registered, e.Requested)
}

// DefinitionError indicates an invalid service definition
type DefinitionError struct {
	ServiceID string
	Message   string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid service definition : %v : %v", e.ServiceID, e.Message)
}
