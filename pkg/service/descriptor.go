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
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver"

	"github.com/oysterpack/overwatch.go/pkg/logging"
)

var logger = logging.NewPackageLogger("service")

// Descriptor identifies and describes a service.
// Think of the service as a component that is part of a system which belongs
// to a namespace. The service is versioned.
//
// Descriptor.ID is the service's identity : the relay fabric key and the
// lookup key in the overwatch services map. Within one overwatch instance no
// two services may share the same ID.
type Descriptor struct {
	namespace string
	system    string
	component string
	version   *semver.Version
}

var wordRe = regexp.MustCompile(`^[[:word:]]+$`)

// NewDescriptor creates a new descriptor.
// namespace, system, and component must not be blank and must only consist of
// word characters. They are trimmed and lower cased.
// version must parse as a semver version.
func NewDescriptor(namespace string, system string, component string, version string) *Descriptor {
	validate := func(name, s string) string {
		s = strings.TrimSpace(s)
		if len(s) == 0 {
			logger.Panic().Msgf("%q cannot be blank", name)
		}
		if !wordRe.MatchString(s) {
			logger.Panic().Msgf("%q contains a non-word character : [%s]", name, s)
		}
		return strings.ToLower(s)
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		logger.Panic().Err(err).Msgf("invalid version : [%s]", version)
	}

	return &Descriptor{
		namespace: validate("namespace", namespace),
		system:    validate("system", system),
		component: validate("component", component),
		version:   v,
	}
}

// ID returns the unique service id composed of {namespace}.{system}.{component}.
// The version is intentionally excluded : a relay handle addresses a component,
// whichever version of it is running.
func (a *Descriptor) ID() string {
	return strings.Join([]string{a.namespace, a.system, a.component}, ".")
}

func (a *Descriptor) String() string {
	return fmt.Sprintf("%v-%v", a.ID(), a.version)
}

// Namespace returns the namespace that the service belongs to
func (a *Descriptor) Namespace() string {
	return a.namespace
}

// System returns the name of the system that the service belongs to
func (a *Descriptor) System() string {
	return a.system
}

// Component returns the name of the component
func (a *Descriptor) Component() string {
	return a.component
}

// Version returns the service version
func (a *Descriptor) Version() *semver.Version {
	return a.version
}
