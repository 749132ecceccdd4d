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

package relay_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oysterpack/overwatch.go/pkg/commons"
	"github.com/oysterpack/overwatch.go/pkg/relay"
)

func TestFabric_TypedLookup(t *testing.T) {
	fabric := relay.NewFabric()
	mailbox := relay.NewMailbox[string]("test.fabric.echo", 4)
	if err := fabric.Register("test.fabric.echo", commons.TypeOf[string](), mailbox.Outbound()); err != nil {
		t.Fatal(err)
	}
	fabric.Ready()

	sender, err := relay.To[string](context.Background(), fabric, "test.fabric.echo")
	if err != nil {
		t.Fatal(err)
	}
	if err := sender.Send(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	msg, err := mailbox.Inbound().Receive(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if msg != "hello" {
		t.Errorf("The relayed message should round-trip, but was : %q", msg)
	}
}

func TestFabric_UnknownService(t *testing.T) {
	fabric := relay.NewFabric()
	fabric.Ready()

	_, err := relay.To[string](context.Background(), fabric, "test.fabric.absent")
	var unknown *relay.UnknownServiceError
	if !errors.As(err, &unknown) {
		t.Fatalf("Lookup of an unregistered service should fail with UnknownServiceError, but returned : %v", err)
	}
	if unknown.ServiceID != "test.fabric.absent" {
		t.Errorf("The error should carry the requested id, but carried : %q", unknown.ServiceID)
	}
}

func TestFabric_WrongType(t *testing.T) {
	fabric := relay.NewFabric()
	mailbox := relay.NewMailbox[string]("test.fabric.typed", 4)
	if err := fabric.Register("test.fabric.typed", commons.TypeOf[string](), mailbox.Outbound()); err != nil {
		t.Fatal(err)
	}
	fabric.Ready()

	_, err := relay.To[int](context.Background(), fabric, "test.fabric.typed")
	var wrongType *relay.WrongTypeError
	if !errors.As(err, &wrongType) {
		t.Fatalf("A lookup typed differently from the registration should fail with WrongTypeError, but returned : %v", err)
	}
	if wrongType.Registered != commons.TypeOf[string]() || wrongType.Requested != commons.TypeOf[int]() {
		t.Errorf("The error should carry both type tags : %v", wrongType)
	}
}

func TestFabric_DuplicateRegistration(t *testing.T) {
	fabric := relay.NewFabric()
	mailbox := relay.NewMailbox[string]("test.fabric.dup", 4)
	if err := fabric.Register("test.fabric.dup", commons.TypeOf[string](), mailbox.Outbound()); err != nil {
		t.Fatal(err)
	}

	err := fabric.Register("test.fabric.dup", commons.TypeOf[string](), mailbox.Outbound())
	var dup *relay.DuplicateServiceError
	if !errors.As(err, &dup) {
		t.Errorf("Registering the same id twice should fail with DuplicateServiceError, but returned : %v", err)
	}
}

func TestFabric_ReadyGate(t *testing.T) {
	fabric := relay.NewFabric()
	mailbox := relay.NewMailbox[string]("test.fabric.gate", 4)
	if err := fabric.Register("test.fabric.gate", commons.TypeOf[string](), mailbox.Outbound()); err != nil {
		t.Fatal(err)
	}

	// a lookup before Ready blocks
	resolved := make(chan error, 1)
	go func() {
		_, err := relay.To[string](context.Background(), fabric, "test.fabric.gate")
		resolved <- err
	}()
	select {
	case err := <-resolved:
		t.Fatalf("The lookup should have blocked on the ready gate, but returned : %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	fabric.Ready()
	select {
	case err := <-resolved:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("The lookup was not released by Ready")
	}

	// a lookup cancelled while waiting returns the context error
	fabric2 := relay.NewFabric()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := relay.To[string](ctx, fabric2, "test.fabric.gate"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("A lookup cancelled at the gate should fail with the context error, but returned : %v", err)
	}
}
