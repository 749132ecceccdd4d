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

package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/oysterpack/overwatch.go/pkg/relay"
	"github.com/oysterpack/overwatch.go/pkg/service"
)

type echoMessage struct {
	text  string
	reply chan string
}

type echoSettings struct {
	Prefix string
}

type echoState struct {
	Count int
}

func echoRun(rc *service.RunContext[echoMessage, echoSettings, echoState]) error {
	state := rc.State()
	for {
		msg, err := rc.Mailbox().Receive(rc.Context())
		if err != nil {
			return nil
		}
		msg.reply <- rc.Settings().Latest().Prefix + msg.text
		state.Count++
		if err := rc.UpdateState(state); err != nil {
			return nil
		}
	}
}

func echoDefinition(component string) service.Definition[echoMessage, echoSettings, echoState] {
	return service.Definition[echoMessage, echoSettings, echoState]{
		Descriptor: service.NewDescriptor("oysterpack", "test", component, "1.0.0"),
		InitState:  func(echoSettings) (echoState, error) { return echoState{}, nil },
		Run:        echoRun,
	}
}

func spawnEcho(t *testing.T, def service.Definition[echoMessage, echoSettings, echoState], settings echoSettings) (*service.Handle, relay.Outbound[echoMessage]) {
	t.Helper()
	fabric := relay.NewFabric()
	h, err := service.Spawn(context.Background(), def, settings, fabric, zerolog.Nop(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.RegisterWith(fabric); err != nil {
		t.Fatal(err)
	}
	fabric.Ready()
	sender, err := relay.To[echoMessage](context.Background(), fabric, h.ID())
	if err != nil {
		t.Fatal(err)
	}
	return h, sender
}

func sendEcho(t *testing.T, sender relay.Outbound[echoMessage], text string) string {
	t.Helper()
	reply := make(chan string, 1)
	if err := sender.Send(context.Background(), echoMessage{text: text, reply: reply}); err != nil {
		t.Fatal(err)
	}
	select {
	case echoed := <-reply:
		return echoed
	case <-time.After(time.Second):
		t.Fatal("no reply from the echo service")
		return ""
	}
}

func TestSpawn_Lifecycle(t *testing.T) {
	h, _ := spawnEcho(t, echoDefinition("lifecycle"), echoSettings{})

	h.Stop()
	if err := h.AwaitStopped(time.Second); err != nil {
		t.Fatal(err)
	}
	if !h.State().Terminated() {
		t.Errorf("A cancelled service should end Terminated, but ended : %v", h.State())
	}
	if h.StopReason() != service.ReasonCancelled {
		t.Errorf("StopReason should be Cancelled, but was : %v", h.StopReason())
	}
}

func TestSpawn_EchoAndSettingsUpdate(t *testing.T) {
	h, sender := spawnEcho(t, echoDefinition("settings"), echoSettings{Prefix: "A"})

	if echoed := sendEcho(t, sender, "x"); echoed != "Ax" {
		t.Errorf(`expected "Ax", received %q`, echoed)
	}

	if err := h.UpdateSettings(echoSettings{Prefix: "B"}); err != nil {
		t.Fatal(err)
	}
	if echoed := sendEcho(t, sender, "y"); echoed != "By" {
		t.Errorf(`after the settings update, expected "By", received %q`, echoed)
	}

	// the settings type is checked
	var typeErr *service.SettingsTypeError
	if err := h.UpdateSettings("not-settings"); !errors.As(err, &typeErr) {
		t.Errorf("UpdateSettings with the wrong type should fail with SettingsTypeError, but returned : %v", err)
	}

	h.Stop()
	if err := h.AwaitStopped(time.Second); err != nil {
		t.Fatal(err)
	}
}

// recordingOperator records every state it observes, in order
type recordingOperator struct {
	mutex  sync.Mutex
	delay  time.Duration
	states []echoState
}

func (o *recordingOperator) Run(_ context.Context, state echoState) {
	if o.delay > 0 {
		time.Sleep(o.delay)
	}
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.states = append(o.states, state)
}

func (o *recordingOperator) observed() []echoState {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return append([]echoState(nil), o.states...)
}

func TestSpawn_OperatorObservesEveryStateInOrder(t *testing.T) {
	operator := &recordingOperator{}
	def := echoDefinition("operator")
	def.NewOperator = func(echoSettings) service.Operator[echoState] { return operator }

	h, sender := spawnEcho(t, def, echoSettings{})
	const writes = 10
	for i := 0; i < writes; i++ {
		sendEcho(t, sender, "m")
	}

	// the operator also observes the seeded initial state, and the final
	// write may still be in flight when the last reply arrives
	deadline := time.Now().Add(time.Second)
	for len(operator.observed()) < writes+1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	h.Stop()
	if err := h.AwaitStopped(time.Second); err != nil {
		t.Fatal(err)
	}

	// AwaitStopped returns only after the operator feed has drained
	observed := operator.observed()
	if len(observed) != writes+1 {
		t.Fatalf("The operator must observe the seed plus every state write : expected %d, observed %d", writes+1, len(observed))
	}
	for i, state := range observed {
		if state.Count != i {
			t.Errorf("State %d out of order : %v", i, state)
		}
	}
}

func TestSpawn_OperatorBackpressure(t *testing.T) {
	operator := &recordingOperator{delay: 50 * time.Millisecond}
	def := service.Definition[echoMessage, echoSettings, echoState]{
		Descriptor: service.NewDescriptor("oysterpack", "test", "backpressure", "1.0.0"),
		InitState:  func(echoSettings) (echoState, error) { return echoState{}, nil },
		NewOperator: func(echoSettings) service.Operator[echoState] {
			return operator
		},
		Run: func(rc *service.RunContext[echoMessage, echoSettings, echoState]) error {
			start := time.Now()
			for i := 1; i <= 4; i++ {
				if err := rc.UpdateState(echoState{Count: i}); err != nil {
					return nil
				}
			}
			// with a slow operator the writer must have been suspended
			if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
				return errors.New("state writes were not suspended by the slow operator")
			}
			<-rc.Context().Done()
			return nil
		},
	}

	h, _ := spawnEcho(t, def, echoSettings{})
	time.Sleep(300 * time.Millisecond)
	h.Stop()
	if err := h.AwaitStopped(2 * time.Second); err != nil {
		t.Fatal(err)
	}
	if !h.State().Terminated() {
		t.Fatalf("service failed : %v", h.FailureCause())
	}

	observed := operator.observed()
	if len(observed) != 5 {
		t.Fatalf("No state value may be lost under backpressure : expected the seed plus 4 writes, observed %d", len(observed))
	}
	for i, state := range observed {
		if state.Count != i {
			t.Errorf("State %d out of order : %v", i, state)
		}
	}
}

func TestSpawn_PanicBecomesFailed(t *testing.T) {
	def := echoDefinition("panics")
	def.Run = func(rc *service.RunContext[echoMessage, echoSettings, echoState]) error {
		if _, err := rc.Mailbox().Receive(rc.Context()); err != nil {
			return nil
		}
		panic("boom")
	}

	h, sender := spawnEcho(t, def, echoSettings{})
	if err := sender.Send(context.Background(), echoMessage{text: "x", reply: make(chan string, 1)}); err != nil {
		t.Fatal(err)
	}
	if err := h.AwaitStopped(time.Second); err != nil {
		t.Fatal(err)
	}

	if !h.State().Failed() {
		t.Fatalf("A panicking service should end Failed, but ended : %v", h.State())
	}
	if h.StopReason() != service.ReasonPanic {
		t.Errorf("StopReason should be Panic, but was : %v", h.StopReason())
	}
	var panicErr *service.PanicError
	if !errors.As(h.FailureCause(), &panicErr) {
		t.Errorf("FailureCause should wrap PanicError, but was : %v", h.FailureCause())
	}
}

func TestSpawn_ErrorBecomesFailed(t *testing.T) {
	cause := errors.New("it broke")
	def := echoDefinition("errors")
	def.Run = func(rc *service.RunContext[echoMessage, echoSettings, echoState]) error {
		return cause
	}

	h, _ := spawnEcho(t, def, echoSettings{})
	if err := h.AwaitStopped(time.Second); err != nil {
		t.Fatal(err)
	}
	if !h.State().Failed() {
		t.Fatalf("A failing service should end Failed, but ended : %v", h.State())
	}
	if h.StopReason() != service.ReasonError {
		t.Errorf("StopReason should be Error, but was : %v", h.StopReason())
	}
	if !errors.Is(h.FailureCause(), cause) {
		t.Errorf("FailureCause should wrap the returned error, but was : %v", h.FailureCause())
	}
}

func TestSpawn_Completed(t *testing.T) {
	def := echoDefinition("completes")
	def.Run = func(rc *service.RunContext[echoMessage, echoSettings, echoState]) error {
		return nil
	}

	h, _ := spawnEcho(t, def, echoSettings{})
	if err := h.AwaitStopped(time.Second); err != nil {
		t.Fatal(err)
	}
	if !h.State().Terminated() {
		t.Errorf("A completed service should end Terminated, but ended : %v", h.State())
	}
	if h.StopReason() != service.ReasonCompleted {
		t.Errorf("StopReason should be Completed, but was : %v", h.StopReason())
	}
}

// loadingOperator recovers a persisted state
type loadingOperator struct {
	recordingOperator
	loaded echoState
}

func (o *loadingOperator) TryLoad(echoSettings) (echoState, bool, error) {
	return o.loaded, true, nil
}

func TestSpawn_OperatorRecoversState(t *testing.T) {
	operator := &loadingOperator{loaded: echoState{Count: 42}}
	def := echoDefinition("recovers")
	def.NewOperator = func(echoSettings) service.Operator[echoState] { return operator }
	def.InitState = func(echoSettings) (echoState, error) {
		t.Error("InitState should not be called when the operator recovers a state")
		return echoState{}, nil
	}

	h, _ := spawnEcho(t, def, echoSettings{})
	watcher, err := service.WatchState[echoState](h)
	if err != nil {
		t.Fatal(err)
	}
	if state := watcher.Latest(); state.Count != 42 {
		t.Errorf("The recovered state should seed the state channel, but was : %v", state)
	}

	h.Stop()
	h.AwaitStopped(time.Second)
}

func TestWatchState(t *testing.T) {
	h, sender := spawnEcho(t, echoDefinition("watchstate"), echoSettings{})

	sendEcho(t, sender, "a")
	sendEcho(t, sender, "b")

	// a late subscriber observes the most recent value
	watcher, err := service.WatchState[echoState](h)
	if err != nil {
		t.Fatal(err)
	}
	state, err := watcher.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if state.Count != 2 {
		t.Errorf("A late subscriber should observe the latest state, but observed : %v", state)
	}

	// requesting the wrong state type is an error, not a silent cast
	var typeErr *service.StateTypeError
	if _, err := service.WatchState[string](h); !errors.As(err, &typeErr) {
		t.Errorf("WatchState with the wrong type should fail with StateTypeError, but returned : %v", err)
	}

	h.Stop()
	h.AwaitStopped(time.Second)
}

func TestSpawn_InvalidDefinition(t *testing.T) {
	def := echoDefinition("invalid")
	def.Run = nil

	_, err := service.Spawn(context.Background(), def, echoSettings{}, relay.NewFabric(), zerolog.Nop(), nil)
	var defErr *service.DefinitionError
	if !errors.As(err, &defErr) {
		t.Errorf("Spawn without Run should fail with DefinitionError, but returned : %v", err)
	}
}
