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

import "fmt"

// ControllerGoneError indicates a handle operation against an overwatch
// instance that has already shut down.
type ControllerGoneError struct {
	InstanceID string
}

func (e *ControllerGoneError) Error() string {
	return fmt.Sprintf("overwatch controller is gone : instance %v", e.InstanceID)
}

// ReplyTimeoutError indicates the controller did not reply to a command
// within the reply timeout.
type ReplyTimeoutError struct {
	Command string
}

func (e *ReplyTimeoutError) Error() string {
	return fmt.Sprintf("controller did not reply to %v command within the reply timeout", e.Command)
}
