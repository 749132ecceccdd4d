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

package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logger fields
const (
	PACKAGE  = "pkg"
	FUNC     = "func"
	SERVICE  = "svc"
	EVENT    = "event"
	STATE    = "state"
	REASON   = "reason"
	ID       = "id"
	INSTANCE = "instance"
	VERSION  = "ver"
)

// logged event names
const (
	STATE_CHANGED    = "STATE_CHANGED"
	STOP_TRIGGERED   = "STOP_TRIGGERED"
	SETTINGS_UPDATED = "SETTINGS_UPDATED"
)

// NewPackageLogger returns a new logger with pkg={pkg}
func NewPackageLogger(pkg string) zerolog.Logger {
	return log.With().Str(PACKAGE, pkg).Logger()
}

// NewServiceLogger returns a child of the parent logger with svc={serviceID}.
// If level is not nil, then the logger level is overridden.
// If output is not nil, then the logger writes to it instead of the parent's writer.
func NewServiceLogger(parent zerolog.Logger, serviceID string, level *zerolog.Level, output io.Writer) zerolog.Logger {
	l := parent.With().Str(SERVICE, serviceID).Logger()
	if output != nil {
		l = l.Output(output)
	}
	if level != nil {
		l = l.Level(*level)
	}
	return l
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
