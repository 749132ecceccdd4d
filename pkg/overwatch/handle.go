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
	"context"
	"time"

	"github.com/oysterpack/overwatch.go/pkg/commons"
	"github.com/oysterpack/overwatch.go/pkg/relay"
	"github.com/oysterpack/overwatch.go/pkg/service"
)

// Handle is the external control surface of a running overwatch instance.
// It is safe for concurrent use and cheap to share.
//
// All operations fail with ControllerGoneError once the instance has shut
// down, except Shutdown itself (idempotent) and WaitFinished.
type Handle[A any] struct {
	ow *Overwatch[A]
}

// InstanceID returns the unique id of the overwatch instance.
func (h *Handle[A]) InstanceID() string { return h.ow.instanceID }

// send enqueues a command, failing fast if the controller is gone.
func (h *Handle[A]) send(cmd command) error {
	select {
	case h.ow.commands <- cmd:
		return nil
	case <-h.ow.finished:
		return &ControllerGoneError{InstanceID: h.ow.instanceID}
	}
}

// await reads the command reply, bounded by the reply timeout so a wedged
// controller cannot stall the caller.
func await[T, A any](h *Handle[A], cmd command, reply chan T) (T, error) {
	timer := time.NewTimer(h.ow.opts.replyTimeout)
	defer timer.Stop()
	select {
	case value := <-reply:
		return value, nil
	case <-h.ow.finished:
		var zero T
		return zero, &ControllerGoneError{InstanceID: h.ow.instanceID}
	case <-timer.C:
		var zero T
		return zero, &ReplyTimeoutError{Command: cmd.name()}
	}
}

// Relay returns a typed send handle for the identified service.
// The lookup fails with relay.UnknownServiceError if no such service is
// registered and with relay.WrongTypeError if the registered message type is
// not M.
func Relay[M any, A any](h *Handle[A], serviceID string) (relay.Outbound[M], error) {
	cmd := &relayCommand{serviceID: serviceID, reply: make(chan relayReply, 1)}
	if err := h.send(cmd); err != nil {
		return relay.Outbound[M]{}, err
	}
	reply, err := await(h, cmd, cmd.reply)
	if err != nil {
		return relay.Outbound[M]{}, err
	}
	if reply.err != nil {
		return relay.Outbound[M]{}, reply.err
	}
	sender, ok := reply.sender.(relay.Outbound[M])
	if !ok {
		return relay.Outbound[M]{}, &relay.WrongTypeError{
			ServiceID:  serviceID,
			Registered: reply.msgType,
			Requested:  commons.TypeOf[M](),
		}
	}
	return sender, nil
}

// UpdateSettings writes a new settings value to the identified service's
// settings channel. value must be of the service's settings type.
func (h *Handle[A]) UpdateSettings(serviceID string, value any) error {
	cmd := &updateSettingsCommand{serviceID: serviceID, value: value, reply: make(chan error, 1)}
	if err := h.send(cmd); err != nil {
		return err
	}
	return replyError(h, cmd, cmd.reply)
}

// UpdateAll fans the aggregate out : each service receives its slice of the
// aggregate via the projection declared with Provide.
func (h *Handle[A]) UpdateAll(aggregate A) error {
	cmd := &updateAllCommand{aggregate: aggregate, reply: make(chan error, 1)}
	if err := h.send(cmd); err != nil {
		return err
	}
	return replyError(h, cmd, cmd.reply)
}

// Stop cancels the identified service and waits for it to wind down, bounded
// by the grace period. Other services are unaffected.
func (h *Handle[A]) Stop(serviceID string) error {
	cmd := &stopServiceCommand{serviceID: serviceID, reply: make(chan error, 1)}
	if err := h.send(cmd); err != nil {
		return err
	}
	// stopping waits for the service to wind down, so allow the grace period
	// on top of the reply timeout
	timer := time.NewTimer(h.ow.opts.replyTimeout + h.ow.opts.gracePeriod)
	defer timer.Stop()
	select {
	case err := <-cmd.reply:
		return err
	case <-h.ow.finished:
		return &ControllerGoneError{InstanceID: h.ow.instanceID}
	case <-timer.C:
		return &ReplyTimeoutError{Command: cmd.name()}
	}
}

// Shutdown stops the whole graph : every service is cancelled, awaited within
// the grace period, and the controller exits its command loop. Shutdown is
// idempotent - invoking it on an already-stopped instance returns nil.
func (h *Handle[A]) Shutdown() error {
	cmd := &shutdownCommand{reply: make(chan error, 1)}
	select {
	case h.ow.commands <- cmd:
	case <-h.ow.finished:
		return nil
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-h.ow.finished:
		return nil
	}
}

// Lifecycle subscribes to the aggregated lifecycle event channel.
func (h *Handle[A]) Lifecycle() (<-chan LifecycleEvent, error) {
	cmd := &subscribeLifecycleCommand{reply: make(chan (<-chan LifecycleEvent), 1)}
	if err := h.send(cmd); err != nil {
		return nil, err
	}
	return await(h, cmd, cmd.reply)
}

// WatchState subscribes to the identified service's state channel.
// A late subscriber observes the most recent state value immediately.
func WatchState[St any, A any](h *Handle[A], serviceID string) (*service.StateWatcher[St], error) {
	select {
	case <-h.ow.finished:
		return nil, &ControllerGoneError{InstanceID: h.ow.instanceID}
	default:
	}
	sh, exists := h.ow.handles[serviceID]
	if !exists {
		return nil, &relay.UnknownServiceError{ServiceID: serviceID}
	}
	return service.WatchState[St](sh)
}

// WaitFinished blocks until graph shutdown has completed and returns the
// exit status summarising every service's terminal state.
func (h *Handle[A]) WaitFinished(ctx context.Context) (ExitStatus, error) {
	select {
	case <-h.ow.finished:
		return h.ow.exit, nil
	case <-ctx.Done():
		return ExitStatus{}, ctx.Err()
	}
}

func replyError[A any](h *Handle[A], cmd command, reply chan error) error {
	err, awaitErr := await(h, cmd, reply)
	if awaitErr != nil {
		return awaitErr
	}
	return err
}
