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

// Package metrics provides prometheus registry helpers.
// Registries are instance scoped - each overwatch instance owns its own -
// so that multiple instances can coexist within the same process.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// NewRegistry creates a new registry.
// If collectProcessMetrics is true, then the prometheus Go and process
// collectors are registered.
func NewRegistry(collectProcessMetrics bool) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	if collectProcessMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return registry
}

// Registry caches registered collectors by fully qualified name so that the
// same metric can be requested more than once, e.g., once per service.
type Registry struct {
	prometheus.Registerer

	mutex       sync.Mutex
	counterVecs map[string]*prometheus.CounterVec
	gaugeVecs   map[string]*prometheus.GaugeVec
}

// NewCachingRegistry wraps a prometheus Registerer with a name based cache.
func NewCachingRegistry(registerer prometheus.Registerer) *Registry {
	return &Registry{
		Registerer:  registerer,
		counterVecs: make(map[string]*prometheus.CounterVec),
		gaugeVecs:   make(map[string]*prometheus.GaugeVec),
	}
}

// GetOrMustRegisterCounterVec returns the cached counterVec registered under
// the same fully qualified name, registering a new one on first use.
// Registration failures panic - metric opts are programming errors.
func (r *Registry) GetOrMustRegisterCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	name := prometheus.BuildFQName(opts.Namespace, opts.Subsystem, opts.Name)
	if counterVec := r.counterVecs[name]; counterVec != nil {
		return counterVec
	}
	counterVec := prometheus.NewCounterVec(opts, labels)
	r.MustRegister(counterVec)
	r.counterVecs[name] = counterVec
	return counterVec
}

// GetOrMustRegisterGaugeVec returns the cached gaugeVec registered under the
// same fully qualified name, registering a new one on first use.
func (r *Registry) GetOrMustRegisterGaugeVec(opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	name := prometheus.BuildFQName(opts.Namespace, opts.Subsystem, opts.Name)
	if gaugeVec := r.gaugeVecs[name]; gaugeVec != nil {
		return gaugeVec
	}
	gaugeVec := prometheus.NewGaugeVec(opts, labels)
	r.MustRegister(gaugeVec)
	r.gaugeVecs[name] = gaugeVec
	return gaugeVec
}
