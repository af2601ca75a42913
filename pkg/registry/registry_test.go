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

package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/NVIDIA/addon-container/pkg/addon"
)

type stubModule struct{}

func (stubModule) Run(ctx context.Context) error { <-ctx.Done(); return nil }
func (stubModule) Close() error                  { return nil }

var (
	core = addon.NewID("core", "1.0.0")
	db   = addon.NewID("db", "2.1.0")
	web  = addon.NewID("web", "0.3.0")
)

// TestRegistry_New tests registry creation
func TestRegistry_New(t *testing.T) {
	reg := New()

	if reg.Count() != 0 {
		t.Errorf("New registry should be empty, got %d addons", reg.Count())
	}
	if reg.MutableWaitlist().Len() != 0 {
		t.Error("New registry should have an empty waitlist")
	}
}

// TestRegistry_Register tests insert-if-absent semantics
func TestRegistry_Register(t *testing.T) {
	reg := New()

	first := reg.Register(NewAddon(core))
	second := reg.Register(NewAddon(core))

	if first != second {
		t.Error("Register should return the existing entry for a duplicate id")
	}
	if reg.Count() != 1 {
		t.Errorf("Expected 1 addon, got %d", reg.Count())
	}
	if !reg.IsRegistered(core) {
		t.Error("core should be registered")
	}
	if reg.IsRegistered(db) {
		t.Error("db should not be registered")
	}
}

func TestRegistry_GetOrRegister(t *testing.T) {
	reg := New()

	a, created := reg.GetOrRegister(core)
	if !created {
		t.Error("expected a new entry")
	}
	if a.Status() != addon.StatusStopped {
		t.Errorf("new entry status = %s, want STOPPED", a.Status())
	}

	b, created := reg.GetOrRegister(core)
	if created || a != b {
		t.Error("expected the existing entry to be returned")
	}
}

func TestAddon_BindModule(t *testing.T) {
	a := NewAddon(core)

	if a.HasModule() {
		t.Fatal("new addon should have no module")
	}
	if err := a.BindModule(stubModule{}); err != nil {
		t.Fatalf("BindModule() error = %v", err)
	}
	if err := a.BindModule(stubModule{}); err == nil {
		t.Error("expected error binding a second module")
	}
	if m := a.UnbindModule(); m == nil {
		t.Error("UnbindModule() should return the bound module")
	}
	if a.HasModule() {
		t.Error("module should be released")
	}
	if err := a.BindModule(stubModule{}); err != nil {
		t.Errorf("rebind after release error = %v", err)
	}
}

func TestAddon_Status(t *testing.T) {
	a := NewAddon(core)

	if prev := a.SetStatus(addon.StatusStarting); prev != addon.StatusStopped {
		t.Errorf("previous status = %s, want STOPPED", prev)
	}
	if a.CompareAndSetStatus(addon.StatusStopped, addon.StatusFailed) {
		t.Error("CompareAndSetStatus should fail on mismatched status")
	}
	if !a.CompareAndSetStatus(addon.StatusStarting, addon.StatusStarted) {
		t.Error("CompareAndSetStatus should succeed on matching status")
	}
	if a.Status() != addon.StatusStarted {
		t.Errorf("status = %s, want STARTED", a.Status())
	}
}

func TestAddon_Park(t *testing.T) {
	a := NewAddon(core)
	if a.Parked() {
		t.Fatal("new addon should not be parked")
	}

	a.Park(context.Canceled)
	if !a.Parked() {
		t.Error("addon should be parked")
	}
	if a.Err() != context.Canceled {
		t.Errorf("Err() = %v, want %v", a.Err(), context.Canceled)
	}

	a.Unpark()
	if a.Parked() {
		t.Error("addon should no longer be parked")
	}
	if a.Err() == nil {
		t.Error("Unpark should keep the recorded error")
	}
}

func TestRegistry_Remove(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*Registry)
		wantErr bool
	}{
		{
			name:    "not registered",
			setup:   func(*Registry) {},
			wantErr: true,
		},
		{
			name: "stopped without module",
			setup: func(r *Registry) {
				r.GetOrRegister(core)
			},
		},
		{
			name: "failed without module",
			setup: func(r *Registry) {
				a, _ := r.GetOrRegister(core)
				a.SetStatus(addon.StatusFailed)
			},
		},
		{
			name: "started",
			setup: func(r *Registry) {
				a, _ := r.GetOrRegister(core)
				a.SetStatus(addon.StatusStarted)
			},
			wantErr: true,
		},
		{
			name: "starting",
			setup: func(r *Registry) {
				a, _ := r.GetOrRegister(core)
				a.SetStatus(addon.StatusStarting)
			},
			wantErr: true,
		},
		{
			name: "module still bound",
			setup: func(r *Registry) {
				a, _ := r.GetOrRegister(core)
				_ = a.BindModule(stubModule{})
				a.SetStatus(addon.StatusStopping)
			},
			wantErr: true,
		},
		{
			name: "missing dependency of a waiting addon",
			setup: func(r *Registry) {
				r.GetOrRegister(core)
				r.GetOrRegister(web)
				r.MutableWaitlist().Put(web, []addon.ID{core})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := New()
			tt.setup(reg)

			err := reg.Remove(core)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Remove() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && reg.IsRegistered(core) {
				t.Error("core should no longer be registered")
			}
		})
	}
}

func TestRegistry_RemoveClearsOwnWaitlistEntry(t *testing.T) {
	reg := New()
	reg.GetOrRegister(web)
	reg.MutableWaitlist().Put(web, []addon.ID{db})

	if err := reg.Remove(web); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if reg.MutableWaitlist().Contains(web) {
		t.Error("waitlist entry should be removed with the addon")
	}
}

func TestWaitlist_Release(t *testing.T) {
	reg := New()
	w := reg.MutableWaitlist()

	webEntry, _ := reg.GetOrRegister(web)
	webEntry.SetStatus(addon.StatusFailed)
	reg.GetOrRegister(db)
	dbEntry, _ := reg.Get(db)
	dbEntry.SetStatus(addon.StatusFailed)

	w.Put(web, []addon.ID{core, db})
	w.Put(db, []addon.ID{core})

	if !reg.IsWaiting(web) || !reg.IsWaiting(db) {
		t.Fatal("web and db should be waiting")
	}

	ready := w.Release(core)
	if len(ready) != 1 || ready[0] != db {
		t.Fatalf("Release(core) = %v, want [db]", ready)
	}
	if dbEntry.Status() != addon.StatusStopped {
		t.Errorf("db status = %s, want STOPPED", dbEntry.Status())
	}
	if got := w.Missing(web); len(got) != 1 || got[0] != db {
		t.Errorf("Missing(web) = %v, want [db]", got)
	}

	ready = w.Release(db)
	if len(ready) != 1 || ready[0] != web {
		t.Fatalf("Release(db) = %v, want [web]", ready)
	}
	if webEntry.Status() != addon.StatusStopped {
		t.Errorf("web status = %s, want STOPPED", webEntry.Status())
	}
	if w.Len() != 0 {
		t.Errorf("waitlist should be empty, has %v", w.Keys())
	}
}

func TestWaitlist_Dependents(t *testing.T) {
	reg := New()
	w := reg.MutableWaitlist()

	w.Put(web, []addon.ID{core, db})
	w.Put(db, []addon.ID{core})

	got := w.Dependents(core)
	if len(got) != 2 || got[0] != db || got[1] != web {
		t.Errorf("Dependents(core) = %v, want [db web]", got)
	}
	if got := w.Dependents(web); len(got) != 0 {
		t.Errorf("Dependents(web) = %v, want none", got)
	}
}

func TestWaitlist_PutEmptyDeletes(t *testing.T) {
	reg := New()
	w := reg.MutableWaitlist()

	w.Put(web, []addon.ID{db})
	w.Put(web, nil)

	if w.Contains(web) {
		t.Error("empty missing set should not be kept")
	}
}

func TestRegistry_Snapshot(t *testing.T) {
	reg := New()
	a, _ := reg.GetOrRegister(web)
	a.SetStatus(addon.StatusFailed)
	b, _ := reg.GetOrRegister(core)
	b.SetStatus(addon.StatusStarted)
	reg.MutableWaitlist().Put(web, []addon.ID{db})

	snap := reg.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap))
	}
	if snap[0].ID != core || snap[1].ID != web {
		t.Errorf("snapshot not sorted: %v", snap)
	}
	if len(snap[1].Missing) != 1 || snap[1].Missing[0] != db {
		t.Errorf("web missing = %v, want [db]", snap[1].Missing)
	}

	services := reg.Services()
	if len(services) != 1 || services[0].ID() != core {
		t.Errorf("Services() = %v, want [core]", services)
	}

	counts := reg.CountByStatus()
	if counts[addon.StatusStarted] != 1 || counts[addon.StatusFailed] != 1 || counts[addon.StatusStopping] != 0 {
		t.Errorf("CountByStatus() = %v", counts)
	}
}

// TestRegistry_Concurrency tests thread-safety
func TestRegistry_Concurrency(t *testing.T) {
	reg := New()
	ids := []addon.ID{core, db, web}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := ids[i%len(ids)]
			a, _ := reg.GetOrRegister(id)
			a.SetStatus(addon.StatusStarting)
			_ = reg.Snapshot()
			_ = reg.CountByStatus()
			reg.MutableWaitlist().Put(id, []addon.ID{ids[(i+1)%len(ids)]})
			reg.MutableWaitlist().Release(ids[(i+2)%len(ids)])
		}(i)
	}
	wg.Wait()

	if reg.Count() != len(ids) {
		t.Errorf("Expected %d addons, got %d", len(ids), reg.Count())
	}
}
