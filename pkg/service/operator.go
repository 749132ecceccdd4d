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

import "context"

// Operator observes every state value a service writes, in write order.
// A typical use case is persistence : saving each state snapshot.
//
// The operator is the designated consumer of the service's state stream.
// If it falls behind, the service's state writes suspend, making the operator
// a first-class backpressure point.
type Operator[St any] interface {
	// Run performs the operation for one state snapshot.
	Run(ctx context.Context, state St)
}

// Loader is an optional Operator capability : recovering a previously
// persisted state. When the operator implements Loader, the supervisor calls
// TryLoad before falling back to the definition's InitState.
type Loader[S, St any] interface {
	// TryLoad returns (state, true, nil) if a persisted state was recovered.
	TryLoad(settings S) (St, bool, error)
}

// NopOperator performs no operation upon state update.
// It is the default when a definition declares no operator.
type NopOperator[St any] struct{}

func (NopOperator[St]) Run(context.Context, St) {}
