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
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/oysterpack/overwatch.go/pkg/commons"
	"github.com/oysterpack/overwatch.go/pkg/logging"
	"github.com/oysterpack/overwatch.go/pkg/relay"
)

// StopReason explains why a service stopped.
type StopReason string

// Possible StopReason values
const (
	// ReasonCompleted - the service task returned of its own accord
	ReasonCompleted StopReason = "Completed"
	// ReasonCancelled - the service observed cancellation and returned
	ReasonCancelled StopReason = "Cancelled"
	// ReasonError - the service task returned an error
	ReasonError StopReason = "Error"
	// ReasonPanic - the service task panicked
	ReasonPanic StopReason = "Panic"
	// ReasonAbortedTimeout - the service did not stop within the shutdown
	// grace period and was abandoned
	ReasonAbortedTimeout StopReason = "AbortedTimeout"
)

// Handle is the controller-facing side of one supervised service.
// It erases the service's type parameters so that a heterogeneous set of
// services can be owned by one controller.
type Handle struct {
	descriptor *Descriptor

	msgType reflect.Type
	// the erased relay.Outbound[M]
	sender any

	// type-checked settings write
	updateSettings func(value any) error

	stateType reflect.Type
	// returns a new *StateWatcher[St]
	newStateWatcher func() any

	serviceState *ServiceState
	cancel       context.CancelFunc
	closeMailbox func()

	// closed when the service task and its operator task have fully wound down
	serviceDone chan struct{}

	// receives at most one error : a panic in the state-operator task
	infraFailure chan error

	logger zerolog.Logger

	mutex      sync.Mutex
	stopReason StopReason
}

// ID returns the service's unique id.
func (h *Handle) ID() string { return h.descriptor.ID() }

// Descriptor returns the service's descriptor.
func (h *Handle) Descriptor() *Descriptor { return h.descriptor }

// State returns the service's current lifecycle state.
func (h *Handle) State() State {
	state, _ := h.serviceState.State()
	return state
}

// FailureCause returns the error that caused the service to fail, or nil.
func (h *Handle) FailureCause() error { return h.serviceState.FailureCause() }

// NewStateChangeListener subscribes to the service's lifecycle transitions.
func (h *Handle) NewStateChangeListener() StateChangeListener {
	return h.serviceState.NewStateChangeListener()
}

// InfraFailure receives a panic trapped in the service's state-operator task.
// The controller treats it as a graph-level failure.
func (h *Handle) InfraFailure() <-chan error { return h.infraFailure }

// UpdateSettings writes a new settings value to the service's settings channel.
// The value must be of the service's settings type.
func (h *Handle) UpdateSettings(value any) error { return h.updateSettings(value) }

// Stop triggers the service's cancellation. It returns immediately;
// use AwaitStopped to wait for the service to wind down.
func (h *Handle) Stop() {
	h.logger.Info().Str(logging.FUNC, "Stop").Str(logging.EVENT, logging.STOP_TRIGGERED).Msg("")
	h.cancel()
}

// AwaitStopped waits until the service task and its operator task have wound
// down, or the timeout elapses.
func (h *Handle) AwaitStopped(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-h.serviceDone:
		return nil
	case <-timer.C:
		return &ShutdownTimeoutError{ServiceID: h.ID(), GracePeriod: timeout}
	}
}

// MarkAborted records that the service exceeded the shutdown grace period.
// The service is marked Failed and its tasks are abandoned - Go provides no
// way to forcibly kill a goroutine, so an unresponsive task is cut loose
// after its context has been cancelled.
func (h *Handle) MarkAborted(grace time.Duration) {
	h.setStopReason(ReasonAbortedTimeout)
	h.serviceState.Failed(&ShutdownTimeoutError{ServiceID: h.ID(), GracePeriod: grace})
	h.closeMailbox()
	h.cancel()
}

// StopReason reports why the service stopped. Empty while still running.
func (h *Handle) StopReason() StopReason {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.stopReason
}

func (h *Handle) setStopReason(reason StopReason) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.stopReason == "" {
		h.stopReason = reason
	}
}

// RegisterWith records the service's send handle in the fabric.
func (h *Handle) RegisterWith(fabric *relay.Fabric) error {
	return fabric.Register(h.ID(), h.msgType, h.sender)
}

// Spawn constructs the service's resources and starts its tasks :
//
//  1. the initial state is built from the initial settings - the operator's
//     Loader capability is consulted first
//  2. the mailbox, the settings channel (seeded), and the state channel
//     (seeded) are created, along with a per-service context derived from
//     the graph context
//  3. the state-operator task is started : it observes every state value in
//     write order and exits once the feed drains after the service task returns
//  4. the service task is started : it calls the definition's Run with the
//     service's RunContext, trapping panics
//
// The returned Handle owns the sender-side endpoints.
func Spawn[M, S, St any](
	graphCtx context.Context,
	def Definition[M, S, St],
	initial S,
	fabric *relay.Fabric,
	parentLogger zerolog.Logger,
	m *Metrics,
) (*Handle, error) {
	if err := def.validate(); err != nil {
		return nil, err
	}
	id := def.Descriptor.ID()
	svcLogger := logging.NewServiceLogger(parentLogger, id, def.LogLevel, def.LogOutput)
	svcMetrics := m.ForService(def.Descriptor)

	serviceState := NewServiceState()

	// log every transition and keep the state gauge current
	stateLog := serviceState.NewStateChangeListener()
	go func() {
		for state := range stateLog {
			svcLogger.Info().
				Str(logging.EVENT, logging.STATE_CHANGED).
				Str(logging.STATE, state.String()).
				Msg("")
			svcMetrics.stateChanged(state)
		}
	}()

	serviceState.Starting()

	op := def.operator(initial)
	initialState, err := def.initialState(initial, op)
	if err != nil {
		failure := &ServiceError{State: Starting, Err: err}
		serviceState.Failed(failure)
		return nil, failure
	}

	mailbox := relay.NewMailbox[M](id, def.MailboxCapacity)
	mailbox.OnReceive(svcMetrics.messageDelivered)

	settingsUpdater, settingsSlot := newSettingsChannel(initial)
	stateUpdater, stateSlot := newStateChannel(initialState)
	stateUpdater.onUpdate = svcMetrics.stateUpdated

	svcCtx, cancel := context.WithCancel(graphCtx)

	h := &Handle{
		descriptor:   def.Descriptor,
		msgType:      commons.TypeOf[M](),
		sender:       mailbox.Outbound(),
		serviceState: serviceState,
		cancel:       cancel,
		closeMailbox: mailbox.Close,
		serviceDone:  make(chan struct{}),
		infraFailure: make(chan error, 1),
		logger:       svcLogger,
	}
	h.stateType = commons.TypeOf[St]()
	h.newStateWatcher = func() any {
		return &StateWatcher[St]{watcher: stateSlot.Subscribe()}
	}
	h.updateSettings = func(value any) error {
		settings, ok := value.(S)
		if !ok {
			return &SettingsTypeError{
				ServiceID:  id,
				Registered: commons.TypeOf[S](),
				Requested:  reflect.TypeOf(value),
			}
		}
		settingsUpdater.Update(settings)
		return nil
	}

	// the current operator, swapped on settings updates
	var operatorMutex sync.Mutex
	currentOperator := op

	// operator runs are not cancelled along with the service, so that the
	// drain after stop can still persist the tail of the state stream
	operatorCtx := context.WithoutCancel(svcCtx)
	operatorDone := make(chan struct{})
	go func() {
		defer close(operatorDone)
		defer func() {
			if p := recover(); p != nil {
				failure := &PanicError{Panic: p, Message: "StateOperator.Run()"}
				svcLogger.Error().Err(failure).Msg("state operator panicked")
				serviceState.Failed(&ServiceError{State: h.State(), Err: failure})
				cancel()
				h.infraFailure <- failure
			}
		}()
		for state := range stateUpdater.feed {
			operatorMutex.Lock()
			operator := currentOperator
			operatorMutex.Unlock()
			operator.Run(operatorCtx, state)
		}
	}()

	// rebuild the operator on every settings update
	go func() {
		watcher := settingsSlot.Subscribe()
		watcher.Skip() // the seed was consumed at construction
		for {
			settings, err := watcher.Next(svcCtx)
			if err != nil {
				return
			}
			operatorMutex.Lock()
			currentOperator = def.operator(settings)
			operatorMutex.Unlock()
			svcLogger.Info().Str(logging.EVENT, logging.SETTINGS_UPDATED).Msg("")
		}
	}()

	go func() {
		defer close(h.serviceDone)
		rc := &RunContext[M, S, St]{
			ctx:      svcCtx,
			mailbox:  mailbox.Inbound(),
			settings: &SettingsNotifier[S]{watcher: settingsSlot.Subscribe()},
			state:    stateUpdater,
			fabric:   fabric,
			logger:   svcLogger,
		}
		serviceState.Running()
		err := runService(def.Run, rc)

		// no further messages are delivered once the service is stopping;
		// senders fail fast from here on
		mailbox.Close()

		var panicErr *PanicError
		switch {
		case err == nil && svcCtx.Err() != nil:
			h.setStopReason(ReasonCancelled)
		case err == nil:
			h.setStopReason(ReasonCompleted)
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			h.setStopReason(ReasonCancelled)
			err = nil
		case errors.As(err, &panicErr):
			h.setStopReason(ReasonPanic)
		default:
			h.setStopReason(ReasonError)
		}

		if err != nil {
			serviceState.Failed(&ServiceError{State: Running, Err: err})
		} else {
			serviceState.Stopping()
		}

		// let the operator drain the remaining buffered state values
		close(stateUpdater.feed)
		<-operatorDone

		stateSlot.Close()
		settingsSlot.Close()

		if err == nil {
			serviceState.Terminated()
		}
		cancel()
	}()

	return h, nil
}

// runService traps panics in the user task and converts them to PanicError
func runService[M, S, St any](run Run[M, S, St], rc *RunContext[M, S, St]) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Panic: p, Message: "Service.run()"}
		}
	}()
	return run(rc)
}

// WatchState subscribes to the service's state channel.
// A late subscriber observes the most recent state value immediately.
// The lookup fails with StateTypeError if St is not the service's state type.
func WatchState[St any](h *Handle) (*StateWatcher[St], error) {
	watcher, ok := h.newStateWatcher().(*StateWatcher[St])
	if !ok {
		return nil, &StateTypeError{
			ServiceID:  h.ID(),
			Registered: h.stateType,
			Requested:  commons.TypeOf[St](),
		}
	}
	return watcher, nil
}
