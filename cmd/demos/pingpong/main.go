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

// pingpong wires two services into one overwatch graph : ping sends a
// numbered message to pong on a ticker, pong echoes it back and counts the
// pings in its state. Ping persists its state to a JSON file through its
// state operator and recovers it on the next run.
//
// Stop it with ctrl-c; the graph shuts down cleanly and prints the exit status.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oysterpack/overwatch.go/pkg/overwatch"
	"github.com/oysterpack/overwatch.go/pkg/relay"
	"github.com/oysterpack/overwatch.go/pkg/service"
)

var (
	pingDescriptor = service.NewDescriptor("oysterpack", "demos", "ping", "1.0.0")
	pongDescriptor = service.NewDescriptor("oysterpack", "demos", "pong", "1.0.0")
)

// PingMessage is what pong receives.
type PingMessage struct {
	Seq uint64
}

// PongMessage is what ping receives back.
type PongMessage struct {
	Seq uint64
}

// PingSettings configures the ping service.
type PingSettings struct {
	Interval      time.Duration
	StateSavePath string
}

// PongSettings configures the pong service.
type PongSettings struct{}

// PingState counts the pongs received.
type PingState struct {
	PongCount uint64 `json:"pong_count"`
}

// PongState counts the pings observed.
type PongState struct {
	PingCount uint64
}

// Settings is the aggregate settings for the whole graph.
type Settings struct {
	Ping PingSettings
	Pong PongSettings
}

// fileOperator persists each ping state snapshot to a JSON file and recovers
// it on start.
type fileOperator struct {
	path string
}

func (o *fileOperator) Run(_ context.Context, state PingState) {
	data, err := json.Marshal(state)
	if err != nil {
		log.Error().Err(err).Msg("marshaling ping state")
		return
	}
	if err := os.WriteFile(o.path, data, 0o644); err != nil {
		log.Error().Err(err).Msg("saving ping state")
	}
}

func (o *fileOperator) TryLoad(settings PingSettings) (PingState, bool, error) {
	data, err := os.ReadFile(settings.StateSavePath)
	if err != nil {
		if os.IsNotExist(err) {
			return PingState{}, false, nil
		}
		return PingState{}, false, err
	}
	var state PingState
	if err := json.Unmarshal(data, &state); err != nil {
		return PingState{}, false, err
	}
	return state, true, nil
}

func pingDefinition() service.Definition[PongMessage, PingSettings, PingState] {
	return service.Definition[PongMessage, PingSettings, PingState]{
		Descriptor: pingDescriptor,
		InitState: func(PingSettings) (PingState, error) {
			return PingState{}, nil
		},
		NewOperator: func(settings PingSettings) service.Operator[PingState] {
			return &fileOperator{path: settings.StateSavePath}
		},
		Run: runPing,
	}
}

func runPing(rc *service.RunContext[PongMessage, PingSettings, PingState]) error {
	pong, err := relay.To[PingMessage](rc.Context(), rc.Fabric(), pongDescriptor.ID())
	if err != nil {
		return err
	}

	settings := rc.Settings().Latest()
	ticker := time.NewTicker(settings.Interval)
	defer ticker.Stop()

	state := rc.State()
	var seq uint64
	for {
		select {
		case <-rc.Context().Done():
			return nil
		case <-ticker.C:
		}

		seq++
		if err := pong.Send(rc.Context(), PingMessage{Seq: seq}); err != nil {
			if rc.StopTriggered() {
				return nil
			}
			return err
		}

		msg, err := rc.Mailbox().Receive(rc.Context())
		if err != nil {
			if rc.StopTriggered() {
				return nil
			}
			return err
		}
		logger := rc.Logger()
		logger.Info().Uint64("seq", msg.Seq).Msg("pong received")
		state.PongCount++
		if err := rc.UpdateState(state); err != nil {
			return nil
		}
	}
}

func pongDefinition() service.Definition[PingMessage, PongSettings, PongState] {
	return service.Definition[PingMessage, PongSettings, PongState]{
		Descriptor: pongDescriptor,
		InitState: func(PongSettings) (PongState, error) {
			return PongState{}, nil
		},
		Run: runPong,
	}
}

func runPong(rc *service.RunContext[PingMessage, PongSettings, PongState]) error {
	ping, err := relay.To[PongMessage](rc.Context(), rc.Fabric(), pingDescriptor.ID())
	if err != nil {
		return err
	}

	state := rc.State()
	for {
		msg, err := rc.Mailbox().Receive(rc.Context())
		if err != nil {
			if rc.StopTriggered() {
				return nil
			}
			return err
		}
		state.PingCount++
		if err := rc.UpdateState(state); err != nil {
			return nil
		}
		if err := ping.Send(rc.Context(), PongMessage{Seq: msg.Seq}); err != nil {
			return nil
		}
	}
}

func main() {
	statePath := flag.String("state", "ping_state.json", "path of the persisted ping state")
	interval := flag.Duration("interval", 100*time.Millisecond, "ping interval")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	b := overwatch.NewBuilder[Settings]()
	overwatch.Provide(b, pingDefinition(),
		func(s Settings) PingSettings { return s.Ping },
		func(s Settings) (PingSettings, bool) { return s.Ping, true },
	)
	overwatch.Provide(b, pongDefinition(),
		func(s Settings) PongSettings { return s.Pong },
		func(s Settings) (PongSettings, bool) { return s.Pong, true },
	)

	h, err := b.Run(Settings{
		Ping: PingSettings{Interval: *interval, StateSavePath: *statePath},
	}, overwatch.WithSignalHandling())
	if err != nil {
		log.Fatal().Err(err).Msg("overwatch failed to start")
	}

	exit, err := h.WaitFinished(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}
	for _, svc := range exit.Services {
		log.Info().
			Str("svc", svc.ServiceID).
			Str("state", svc.State.String()).
			Str("reason", string(svc.Reason)).
			Msg("service exit")
	}
	if !exit.Clean() {
		os.Exit(1)
	}
}
