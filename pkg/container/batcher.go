// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package container

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// batcher bounds the number of addons concurrently in their start step.
type batcher struct {
	sem      *semaphore.Weighted
	inFlight atomic.Int64
}

func newBatcher(size int) *batcher {
	return &batcher{sem: semaphore.NewWeighted(int64(size))}
}

// acquire blocks until a start slot is free or ctx is done.
func (b *batcher) acquire(ctx context.Context) error {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	startingInFlight.Set(float64(b.inFlight.Add(1)))
	return nil
}

func (b *batcher) release() {
	startingInFlight.Set(float64(b.inFlight.Add(-1)))
	b.sem.Release(1)
}

// InFlight returns the number of held slots.
func (b *batcher) InFlight() int {
	return int(b.inFlight.Load())
}
