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
	"context"
	"reflect"
	"sync"

	"github.com/oysterpack/overwatch.go/pkg/commons"
)

// Fabric is the registry of every service's send handle, keyed by service id
// plus the runtime type of the service's message.
//
// The fabric is populated while the graph is being constructed and then frozen
// by Ready. Lookups block until Ready fires, so services spawned early never
// observe a partially built registry.
type Fabric struct {
	mu      sync.Mutex
	entries map[string]fabricEntry

	// closed once all services are registered - the fabric-ready gate
	ready     chan struct{}
	readyOnce sync.Once
}

type fabricEntry struct {
	msgType reflect.Type
	// the erased Outbound[M]
	sender any
}

// NewFabric returns an empty, not-yet-ready fabric.
func NewFabric() *Fabric {
	return &Fabric{
		entries: make(map[string]fabricEntry),
		ready:   make(chan struct{}),
	}
}

// Register records a service's send handle. sender must be an Outbound[M]
// whose M is described by msgType.
// Registering a second service under the same id fails with DuplicateServiceError.
func (f *Fabric) Register(serviceID string, msgType reflect.Type, sender any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.entries[serviceID]; exists {
		return &DuplicateServiceError{ServiceID: serviceID}
	}
	f.entries[serviceID] = fabricEntry{msgType: msgType, sender: sender}
	return nil
}

// Ready freezes the registry and releases all lookups waiting on the gate.
func (f *Fabric) Ready() {
	f.readyOnce.Do(func() { close(f.ready) })
}

// WaitReady blocks until the fabric-ready gate fires or ctx is done.
func (f *Fabric) WaitReady(ctx context.Context) error {
	select {
	case <-f.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// To returns a typed send handle for the identified service.
// It blocks until the fabric is ready. The lookup fails with
// UnknownServiceError if no service is registered under the id, and with
// WrongTypeError if the registered message type is not M.
func To[M any](ctx context.Context, f *Fabric, serviceID string) (Outbound[M], error) {
	if err := f.WaitReady(ctx); err != nil {
		return Outbound[M]{}, err
	}
	// no lock needed : entries are frozen once ready
	entry, exists := f.entries[serviceID]
	if !exists {
		return Outbound[M]{}, &UnknownServiceError{ServiceID: serviceID}
	}
	sender, ok := entry.sender.(Outbound[M])
	if !ok {
		return Outbound[M]{}, &WrongTypeError{
			ServiceID:  serviceID,
			Registered: entry.msgType,
			Requested:  commons.TypeOf[M](),
		}
	}
	return sender, nil
}

// Entry returns the registered message type and erased sender for the
// identified service. It must only be used after Ready; the typed view is
// re-exposed via To.
func (f *Fabric) Entry(serviceID string) (reflect.Type, any, bool) {
	entry, exists := f.entries[serviceID]
	return entry.msgType, entry.sender, exists
}

// ServiceIDs returns the ids of all registered services.
func (f *Fabric) ServiceIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.entries))
	for id := range f.entries {
		ids = append(ids, id)
	}
	return ids
}
