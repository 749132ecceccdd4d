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

package overwatch

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadSettings decodes an aggregate settings value from YAML.
// Unknown fields are rejected.
func LoadSettings[A any](r io.Reader) (A, error) {
	var aggregate A
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&aggregate); err != nil {
		return aggregate, fmt.Errorf("decoding settings: %w", err)
	}
	return aggregate, nil
}

// LoadSettingsFile decodes an aggregate settings value from a YAML file.
func LoadSettingsFile[A any](path string) (A, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero A
		return zero, err
	}
	defer f.Close()
	return LoadSettings[A](f)
}
