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

package relay

import (
	"fmt"
	"reflect"
)

// UnknownServiceError indicates a relay lookup for a service id that is not registered.
type UnknownServiceError struct {
	ServiceID string
}

func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("unknown service : %v", e.ServiceID)
}

// WrongTypeError indicates a relay lookup whose requested message type does not
// match the message type the service was registered with.
type WrongTypeError struct {
	ServiceID  string
	Registered reflect.Type
	Requested  reflect.Type
}

func (e *WrongTypeError) Error() string {
	return fmt.Sprintf("wrong message type for service %v : registered %v, requested %v", e.ServiceID, e.Registered, e.Requested)
}

// MailboxFullError indicates a non-blocking send against a full mailbox.
type MailboxFullError struct {
	ServiceID string
	Capacity  int
}

func (e *MailboxFullError) Error() string {
	return fmt.Sprintf("mailbox is full : service %v, capacity %d", e.ServiceID, e.Capacity)
}

// ReceiverGoneError indicates a send to a mailbox whose receiving service has stopped.
type ReceiverGoneError struct {
	ServiceID string
}

func (e *ReceiverGoneError) Error() string {
	return fmt.Sprintf("mailbox receiver is gone : service %v", e.ServiceID)
}

// DuplicateServiceError indicates that two services were registered under the same id.
type DuplicateServiceError struct {
	ServiceID string
}

func (e *DuplicateServiceError) Error() string {
	return fmt.Sprintf("duplicate service id : %v", e.ServiceID)
}
