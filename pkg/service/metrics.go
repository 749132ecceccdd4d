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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/oysterpack/overwatch.go/pkg/metrics"
)

// standard service metric labels
const (
	// METRIC_LABEL_NAMESPACE ns -> Descriptor.Namespace
	METRIC_LABEL_NAMESPACE = "ns"
	// METRIC_LABEL_SYSTEM sys -> Descriptor.System
	METRIC_LABEL_SYSTEM = "sys"
	// METRIC_LABEL_COMPONENT comp -> Descriptor.Component
	METRIC_LABEL_COMPONENT = "comp"
	// METRIC_LABEL_VERSION ver -> Descriptor.Version
	METRIC_LABEL_VERSION = "ver"
)

var serviceMetricLabels = []string{
	METRIC_LABEL_NAMESPACE,
	METRIC_LABEL_SYSTEM,
	METRIC_LABEL_COMPONENT,
	METRIC_LABEL_VERSION,
}

// ServiceMetricLabels returns labels that identify the service's metrics, e.g.,
//
//	ns="oysterpack",sys="demos",comp="ping",ver="1.0.0"
func ServiceMetricLabels(desc *Descriptor) prometheus.Labels {
	return prometheus.Labels{
		METRIC_LABEL_NAMESPACE: desc.Namespace(),
		METRIC_LABEL_SYSTEM:    desc.System(),
		METRIC_LABEL_COMPONENT: desc.Component(),
		METRIC_LABEL_VERSION:   desc.Version().String(),
	}
}

// Metrics owns the per-service collectors for one overwatch instance.
type Metrics struct {
	state        *prometheus.GaugeVec
	transitions  *prometheus.CounterVec
	messages     *prometheus.CounterVec
	stateUpdates *prometheus.CounterVec
}

// NewMetrics registers the service collectors against the registry.
func NewMetrics(registry *metrics.Registry) *Metrics {
	return &Metrics{
		state: registry.GetOrMustRegisterGaugeVec(prometheus.GaugeOpts{
			Namespace: "overwatch",
			Subsystem: "service",
			Name:      "state",
			Help:      "Current lifecycle state : 0=New 1=Starting 2=Running 3=Stopping 4=Terminated 5=Failed",
		}, serviceMetricLabels),
		transitions: registry.GetOrMustRegisterCounterVec(prometheus.CounterOpts{
			Namespace: "overwatch",
			Subsystem: "service",
			Name:      "state_transitions_total",
			Help:      "Number of lifecycle state transitions",
		}, serviceMetricLabels),
		messages: registry.GetOrMustRegisterCounterVec(prometheus.CounterOpts{
			Namespace: "overwatch",
			Subsystem: "service",
			Name:      "messages_delivered_total",
			Help:      "Number of messages delivered from the service's mailbox",
		}, serviceMetricLabels),
		stateUpdates: registry.GetOrMustRegisterCounterVec(prometheus.CounterOpts{
			Namespace: "overwatch",
			Subsystem: "service",
			Name:      "state_updates_total",
			Help:      "Number of state values published by the service",
		}, serviceMetricLabels),
	}
}

// serviceMetrics binds the instance collectors to one service's labels.
// A nil *serviceMetrics is valid and records nothing.
type serviceMetrics struct {
	state        prometheus.Gauge
	transitions  prometheus.Counter
	messages     prometheus.Counter
	stateUpdates prometheus.Counter
}

// ForService binds the collectors to the service's descriptor labels.
func (m *Metrics) ForService(desc *Descriptor) *serviceMetrics {
	if m == nil {
		return nil
	}
	labels := ServiceMetricLabels(desc)
	return &serviceMetrics{
		state:        m.state.With(labels),
		transitions:  m.transitions.With(labels),
		messages:     m.messages.With(labels),
		stateUpdates: m.stateUpdates.With(labels),
	}
}

func (m *serviceMetrics) stateChanged(state State) {
	if m == nil {
		return
	}
	m.state.Set(float64(state))
	m.transitions.Inc()
}

func (m *serviceMetrics) messageDelivered() {
	if m == nil {
		return
	}
	m.messages.Inc()
}

func (m *serviceMetrics) stateUpdated() {
	if m == nil {
		return
	}
	m.stateUpdates.Inc()
}
