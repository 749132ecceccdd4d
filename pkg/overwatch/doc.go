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

// Package overwatch provides the controller that owns and coordinates a set
// of supervised services : it starts them, routes external commands, fans
// settings out, aggregates lifecycle events, and orchestrates graph-wide
// shutdown.
//
// The user describes the full service set through a Builder whose aggregate
// settings type A supplies each service's initial settings and its slice of
// an UpdateAll aggregate :
//
//	b := overwatch.NewBuilder[Settings]()
//	overwatch.Provide(b, pingDef,
//		func(s Settings) PingSettings { return s.Ping },
//		func(s Settings) (PingSettings, bool) { return s.Ping, true })
//	overwatch.Provide(b, pongDef,
//		func(s Settings) PongSettings { return s.Pong },
//		func(s Settings) (PongSettings, bool) { return s.Pong, true })
//	h, err := b.Run(settings)
//
// The returned Handle is the external control surface : Relay, UpdateSettings,
// UpdateAll, Stop, Shutdown, Lifecycle, WaitFinished.
//
// The controller is not a singleton - many overwatch instances can coexist in
// one process. All "global" state (fabric, settings, shutdown) is scoped to a
// single instance.
package overwatch
