// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package supervisor

import (
	"context"
	"errors"
	"sync"
)

// fakeService is a controllable suture.Service for supervisor tests.
// The zero configuration blocks until the context is canceled; SetError
// and SetFailCount switch it into failure modes.
type fakeService struct {
	name string

	mu        sync.Mutex
	err       error
	failsLeft int
	starts    int
}

func newFakeService(name string) *fakeService {
	return &fakeService{name: name}
}

// Serve implements suture.Service.
func (f *fakeService) Serve(ctx context.Context) error {
	f.mu.Lock()
	f.starts++
	if f.failsLeft > 0 {
		f.failsLeft--
		f.mu.Unlock()
		return errors.New("induced failure")
	}
	err := f.err
	f.mu.Unlock()

	if err != nil {
		return err
	}

	<-ctx.Done()
	return ctx.Err()
}

// SetError makes Serve return err immediately on every start.
func (f *fakeService) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// SetFailCount makes the next n Serve calls fail before the service
// settles into blocking.
func (f *fakeService) SetFailCount(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failsLeft = n
}

// StartCount reports how many times the supervisor started the service.
func (f *fakeService) StartCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

// String names the service in supervisor logs.
func (f *fakeService) String() string {
	return f.name
}
