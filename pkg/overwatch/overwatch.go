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
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nats-io/nuid"
	"github.com/rs/zerolog"

	"github.com/oysterpack/overwatch.go/pkg/logging"
	"github.com/oysterpack/overwatch.go/pkg/metrics"
	"github.com/oysterpack/overwatch.go/pkg/relay"
	"github.com/oysterpack/overwatch.go/pkg/service"
)

// Builder declares the full service set of one overwatch instance.
// A is the aggregate settings type : it must expose, for each service, its
// initial settings value and a projection for updates. Services are added
// with Provide and the graph is started with Run.
type Builder[A any] struct {
	entries []builderEntry[A]
}

type builderEntry[A any] struct {
	id      string
	spawn   func(ctx context.Context, aggregate A, fabric *relay.Fabric, logger zerolog.Logger, m *service.Metrics) (*service.Handle, error)
	project func(aggregate A) (any, bool)
}

// NewBuilder returns an empty builder for the aggregate settings type A.
func NewBuilder[A any]() *Builder[A] {
	return &Builder[A]{}
}

// Provide declares one service.
//
// initial extracts the service's starting settings from the aggregate.
// project extracts the service's slice of an UpdateAll aggregate; returning
// false leaves the service's settings unchanged. project may be nil if the
// service never participates in UpdateAll.
func Provide[M, S, St, A any](
	b *Builder[A],
	def service.Definition[M, S, St],
	initial func(A) S,
	project func(A) (S, bool),
) {
	b.entries = append(b.entries, builderEntry[A]{
		id: def.Descriptor.ID(),
		spawn: func(ctx context.Context, aggregate A, fabric *relay.Fabric, logger zerolog.Logger, m *service.Metrics) (*service.Handle, error) {
			return service.Spawn(ctx, def, initial(aggregate), fabric, logger, m)
		},
		project: func(aggregate A) (any, bool) {
			if project == nil {
				return nil, false
			}
			settings, ok := project(aggregate)
			return settings, ok
		},
	})
}

// Overwatch owns the service set : the supervisors' handles, the relay
// fabric, the graph cancellation, and the aggregated lifecycle channel.
// It is driven through its command mailbox; see Handle.
type Overwatch[A any] struct {
	instanceID string
	logger     zerolog.Logger
	opts       *options

	fabric      *relay.Fabric
	handles     map[string]*service.Handle
	order       []string
	projections map[string]func(A) (any, bool)

	commands  chan command
	lifecycle *lifecycleBroadcaster

	graphCancel context.CancelFunc

	// tracks the per-service event watcher goroutines so shutdown can drain
	// their terminal events before closing the lifecycle channel
	watchers sync.WaitGroup

	shutdownOnce sync.Once

	// closed after shutdown completes; exit is set before it closes
	finished chan struct{}
	exit     ExitStatus
}

// Run starts the graph :
//
//  1. every declared service is spawned with its initial settings
//  2. each service's send handle is registered in the relay fabric
//  3. the fabric-ready gate fires, releasing relay lookups
//  4. the graph Started event is emitted and the command loop starts
//
// If any service fails to spawn or register, then the already-spawned
// services are cancelled and awaited, and the error is returned.
func (b *Builder[A]) Run(aggregate A, optFns ...Option) (*Handle[A], error) {
	opts := defaultOptions()
	for _, apply := range optFns {
		apply(opts)
	}

	instanceID := nuid.Next()
	logger := opts.logger.With().Str(logging.INSTANCE, instanceID).Logger()

	graphCtx, graphCancel := context.WithCancel(context.Background())

	var serviceMetrics *service.Metrics
	if opts.registry != nil {
		serviceMetrics = service.NewMetrics(metrics.NewCachingRegistry(opts.registry))
	}

	ow := &Overwatch[A]{
		instanceID:  instanceID,
		logger:      logger,
		opts:        opts,
		fabric:      relay.NewFabric(),
		handles:     make(map[string]*service.Handle, len(b.entries)),
		projections: make(map[string]func(A) (any, bool), len(b.entries)),
		commands:    make(chan command, commandBufferSize),
		lifecycle:   newLifecycleBroadcaster(logger),
		graphCancel: graphCancel,
		finished:    make(chan struct{}),
	}

	for _, entry := range b.entries {
		h, err := entry.spawn(graphCtx, aggregate, ow.fabric, logger, serviceMetrics)
		if err == nil {
			err = h.RegisterWith(ow.fabric)
		}
		if err != nil {
			graphCancel()
			ow.fabric.Ready()
			for _, spawned := range ow.handles {
				if awaitErr := spawned.AwaitStopped(opts.gracePeriod); awaitErr != nil {
					spawned.MarkAborted(opts.gracePeriod)
				}
			}
			return nil, err
		}
		ow.handles[h.ID()] = h
		ow.order = append(ow.order, h.ID())
		ow.projections[h.ID()] = entry.project
	}

	ow.fabric.Ready()

	for _, id := range ow.order {
		h := ow.handles[id]
		ow.watchers.Add(1)
		go func() {
			defer ow.watchers.Done()
			ow.watchService(h)
		}()
	}

	ow.lifecycle.publish(LifecycleEvent{Kind: EventStarted})
	logger.Info().Str(logging.FUNC, "Run").Int("services", len(ow.order)).Msg("overwatch started")

	go ow.commandLoop()
	if opts.handleSignals {
		go ow.watchSignals()
	}

	return &Handle[A]{ow: ow}, nil
}

// watchService translates one service's state transitions into aggregated
// lifecycle events and applies the failure policy.
func (ow *Overwatch[A]) watchService(h *service.Handle) {
	listener := h.NewStateChangeListener()

	// the service task may have reached Running before this listener was
	// registered; announce it at most once either way
	started := false
	if h.State().Running() {
		ow.lifecycle.publish(LifecycleEvent{ServiceID: h.ID(), Kind: EventStarted})
		started = true
	}

	for {
		select {
		case state, open := <-listener:
			if !open {
				return
			}
			switch {
			case state.Running():
				if started {
					break
				}
				started = true
				ow.lifecycle.publish(LifecycleEvent{ServiceID: h.ID(), Kind: EventStarted})
			case state.Terminated():
				ow.lifecycle.publish(LifecycleEvent{
					ServiceID: h.ID(),
					Kind:      EventStopped,
					Reason:    h.StopReason(),
				})
			case state.Failed():
				ow.lifecycle.publish(LifecycleEvent{
					ServiceID: h.ID(),
					Kind:      EventFailed,
					Reason:    h.StopReason(),
					Err:       h.FailureCause(),
				})
				if ow.opts.shutdownOnServiceFailure {
					ow.triggerShutdown()
				}
			}
		case err := <-h.InfraFailure():
			// a panic in infrastructure is a graph-level failure
			ow.lifecycle.publish(LifecycleEvent{Kind: EventFailed, Err: err})
			ow.triggerShutdown()
		}
	}
}

func (ow *Overwatch[A]) commandLoop() {
	for cmd := range ow.commands {
		switch c := cmd.(type) {
		case *relayCommand:
			msgType, sender, exists := ow.fabric.Entry(c.serviceID)
			if !exists {
				c.reply <- relayReply{err: &relay.UnknownServiceError{ServiceID: c.serviceID}}
				break
			}
			c.reply <- relayReply{msgType: msgType, sender: sender}

		case *updateSettingsCommand:
			h, exists := ow.handles[c.serviceID]
			if !exists {
				c.reply <- &relay.UnknownServiceError{ServiceID: c.serviceID}
				break
			}
			err := h.UpdateSettings(c.value)
			if err == nil {
				ow.lifecycle.publish(LifecycleEvent{ServiceID: c.serviceID, Kind: EventSettingsUpdated})
			}
			c.reply <- err

		case *updateAllCommand:
			aggregate, ok := c.aggregate.(A)
			if !ok {
				c.reply <- &service.SettingsTypeError{ServiceID: "*"}
				break
			}
			var errs []error
			for _, id := range ow.order {
				settings, apply := ow.projections[id](aggregate)
				if !apply {
					continue
				}
				if err := ow.handles[id].UpdateSettings(settings); err != nil {
					errs = append(errs, err)
					continue
				}
				ow.lifecycle.publish(LifecycleEvent{ServiceID: id, Kind: EventSettingsUpdated})
			}
			c.reply <- errors.Join(errs...)

		case *stopServiceCommand:
			h, exists := ow.handles[c.serviceID]
			if !exists {
				c.reply <- &relay.UnknownServiceError{ServiceID: c.serviceID}
				break
			}
			h.Stop()
			// reply once the service has wound down; do not stall the loop
			go func(reply chan error) {
				if err := h.AwaitStopped(ow.opts.gracePeriod); err != nil {
					h.MarkAborted(ow.opts.gracePeriod)
					reply <- err
					return
				}
				reply <- nil
			}(c.reply)

		case *subscribeLifecycleCommand:
			c.reply <- ow.lifecycle.subscribe()

		case *shutdownCommand:
			ow.performShutdown()
			c.reply <- nil
			return
		}
	}
}

// performShutdown broadcasts graph cancellation, awaits every service within
// the grace period, abandons the stragglers, records the exit status, and
// closes the lifecycle channel.
func (ow *Overwatch[A]) performShutdown() {
	ow.logger.Info().Str(logging.FUNC, "performShutdown").Str(logging.EVENT, logging.STOP_TRIGGERED).Msg("")
	ow.graphCancel()

	var wg sync.WaitGroup
	for _, id := range ow.order {
		h := ow.handles[id]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.AwaitStopped(ow.opts.gracePeriod); err != nil {
				h.MarkAborted(ow.opts.gracePeriod)
				ow.logger.Error().Err(err).Str(logging.SERVICE, h.ID()).Msg("service abandoned")
			}
		}()
	}
	wg.Wait()

	// every service has reached a terminal state; wait for the watchers to
	// publish the terminal events before the lifecycle channel closes
	ow.watchers.Wait()

	exits := make([]ServiceExit, 0, len(ow.order))
	for _, id := range ow.order {
		h := ow.handles[id]
		exits = append(exits, ServiceExit{
			ServiceID: id,
			State:     h.State(),
			Reason:    h.StopReason(),
			Err:       h.FailureCause(),
		})
	}
	ow.exit = ExitStatus{InstanceID: ow.instanceID, Services: exits}

	ow.lifecycle.publish(LifecycleEvent{Kind: EventStopped, Reason: service.ReasonCancelled})
	ow.lifecycle.close()
	close(ow.finished)
	ow.logger.Info().Str(logging.FUNC, "performShutdown").Msg("overwatch stopped")
}

// triggerShutdown enqueues a shutdown command exactly once, without blocking
// the caller.
func (ow *Overwatch[A]) triggerShutdown() {
	ow.shutdownOnce.Do(func() {
		go func() {
			reply := make(chan error, 1)
			select {
			case ow.commands <- &shutdownCommand{reply: reply}:
			case <-ow.finished:
			}
		}()
	})
}

func (ow *Overwatch[A]) watchSignals() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(signals)
	select {
	case sig := <-signals:
		ow.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		ow.triggerShutdown()
	case <-ow.finished:
	}
}
