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

// Package relay provides typed asynchronous messaging between services :
// bounded mailboxes, cloneable typed send handles, and the fabric - a
// registry that hands out a typed send handle for any registered service.
package relay

import (
	"context"
	"sync"
)

// DefaultMailboxCapacity is used when a service does not specify a capacity.
const DefaultMailboxCapacity = 16

// Mailbox is a bounded FIFO queue feeding a single service.
// Producers hold Outbound handles; the owning service holds the Inbound side.
type Mailbox[M any] struct {
	serviceID string
	capacity  int
	messages  chan M

	// closed when the receiving service stops - sends fail fast afterwards
	done     chan struct{}
	doneOnce sync.Once

	// optional delivery hook, set before the service starts
	onReceive func()
}

// NewMailbox creates a mailbox for the identified service.
// If capacity < 1 then DefaultMailboxCapacity is used.
func NewMailbox[M any](serviceID string, capacity int) *Mailbox[M] {
	if capacity < 1 {
		capacity = DefaultMailboxCapacity
	}
	return &Mailbox[M]{
		serviceID: serviceID,
		capacity:  capacity,
		messages:  make(chan M, capacity),
		done:      make(chan struct{}),
	}
}

// Capacity returns the mailbox capacity.
func (m *Mailbox[M]) Capacity() int { return m.capacity }

// Outbound returns a cloneable send handle.
func (m *Mailbox[M]) Outbound() Outbound[M] { return Outbound[M]{mailbox: m} }

// Inbound returns the receive side. There must be exactly one consumer.
func (m *Mailbox[M]) Inbound() *Inbound[M] { return &Inbound[M]{mailbox: m} }

// OnReceive registers a hook invoked for every delivered message.
// It must be set before the first Receive.
func (m *Mailbox[M]) OnReceive(hook func()) { m.onReceive = hook }

// Close marks the receiver gone. Pending and future sends fail with
// ReceiverGoneError. Messages already enqueued are not removed : Inbound
// still returns them.
func (m *Mailbox[M]) Close() {
	m.doneOnce.Do(func() { close(m.done) })
}

// Outbound is a typed send handle for one service's mailbox.
// It is cheap to copy and safe for concurrent use.
type Outbound[M any] struct {
	mailbox *Mailbox[M]
}

// Send enqueues the message, blocking while the mailbox is at capacity.
// It fails with ReceiverGoneError once the receiving service has stopped,
// or with ctx.Err() if the context is done first.
func (o Outbound[M]) Send(ctx context.Context, msg M) error {
	select {
	case <-o.mailbox.done:
		return &ReceiverGoneError{ServiceID: o.mailbox.serviceID}
	default:
	}
	select {
	case o.mailbox.messages <- msg:
		return nil
	case <-o.mailbox.done:
		return &ReceiverGoneError{ServiceID: o.mailbox.serviceID}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend enqueues the message without blocking.
// It fails with MailboxFullError if the mailbox is at capacity, and with
// ReceiverGoneError once the receiving service has stopped.
func (o Outbound[M]) TrySend(msg M) error {
	select {
	case <-o.mailbox.done:
		return &ReceiverGoneError{ServiceID: o.mailbox.serviceID}
	default:
	}
	select {
	case o.mailbox.messages <- msg:
		return nil
	case <-o.mailbox.done:
		return &ReceiverGoneError{ServiceID: o.mailbox.serviceID}
	default:
		return &MailboxFullError{ServiceID: o.mailbox.serviceID, Capacity: o.mailbox.capacity}
	}
}

// ServiceID returns the id of the service this handle sends to.
func (o Outbound[M]) ServiceID() string { return o.mailbox.serviceID }

// Inbound is the receive side of a mailbox, owned by the service task.
type Inbound[M any] struct {
	mailbox *Mailbox[M]
}

// Receive returns the next message, blocking until one arrives or ctx is done.
func (in *Inbound[M]) Receive(ctx context.Context) (M, error) {
	select {
	case msg := <-in.mailbox.messages:
		if in.mailbox.onReceive != nil {
			in.mailbox.onReceive()
		}
		return msg, nil
	case <-ctx.Done():
		var zero M
		return zero, ctx.Err()
	}
}

// TryReceive returns the next message without blocking.
func (in *Inbound[M]) TryReceive() (M, bool) {
	select {
	case msg := <-in.mailbox.messages:
		if in.mailbox.onReceive != nil {
			in.mailbox.onReceive()
		}
		return msg, true
	default:
		var zero M
		return zero, false
	}
}
