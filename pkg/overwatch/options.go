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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultGracePeriod bounds how long shutdown waits for each service
	DefaultGracePeriod = 5 * time.Second
	// DefaultReplyTimeout bounds how long handle operations wait for the
	// controller to reply
	DefaultReplyTimeout = 5 * time.Second

	commandBufferSize = 16
)

type options struct {
	gracePeriod              time.Duration
	replyTimeout             time.Duration
	logger                   zerolog.Logger
	registry                 prometheus.Registerer
	shutdownOnServiceFailure bool
	handleSignals            bool
}

func defaultOptions() *options {
	return &options{
		gracePeriod:  DefaultGracePeriod,
		replyTimeout: DefaultReplyTimeout,
		logger:       log.Logger,
	}
}

// Option customizes an overwatch instance.
type Option func(*options)

// WithGracePeriod sets the shutdown grace period. After the grace period a
// still-running service is abandoned and marked Failed.
func WithGracePeriod(grace time.Duration) Option {
	return func(o *options) { o.gracePeriod = grace }
}

// WithReplyTimeout sets the timeout applied to controller command replies.
func WithReplyTimeout(timeout time.Duration) Option {
	return func(o *options) { o.replyTimeout = timeout }
}

// WithLogger sets the root logger for the instance, the controller, and every
// service.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetricsRegistry enables service metrics, registered against the
// supplied registerer.
func WithMetricsRegistry(registry prometheus.Registerer) Option {
	return func(o *options) { o.registry = registry }
}

// WithShutdownOnServiceFailure converts any service failure into a graph
// shutdown.
func WithShutdownOnServiceFailure() Option {
	return func(o *options) { o.shutdownOnServiceFailure = true }
}

// WithSignalHandling triggers graph shutdown on SIGTERM and SIGINT.
func WithSignalHandling() Option {
	return func(o *options) { o.handleSignals = true }
}
