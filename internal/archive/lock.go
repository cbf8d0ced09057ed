/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package archive

import (
	"context"
	"path/filepath"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Locker serializes archive operations per file path. The zero value is ready to use.
type Locker struct {
	mu    sync.Mutex
	paths map[string]*pathLock
}

type pathLock struct {
	sem  *semaphore.Weighted
	refs int
}

// Lock blocks until the caller holds path exclusively or ctx is done.
// The returned function releases the lock and must be called exactly once.
func (l *Locker) Lock(ctx context.Context, path string) (func(), error) {
	key := lockKey(path)

	l.mu.Lock()
	if l.paths == nil {
		l.paths = make(map[string]*pathLock)
	}
	pl, ok := l.paths[key]
	if !ok {
		pl = &pathLock{sem: semaphore.NewWeighted(1)}
		l.paths[key] = pl
	}
	pl.refs++
	l.mu.Unlock()

	if err := pl.sem.Acquire(ctx, 1); err != nil {
		l.drop(key, pl)
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			pl.sem.Release(1)
			l.drop(key, pl)
		})
	}, nil
}

func (l *Locker) drop(key string, pl *pathLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pl.refs--
	if pl.refs == 0 {
		delete(l.paths, key)
	}
}

// held reports how many callers hold or wait for path.
func (l *Locker) held(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if pl, ok := l.paths[lockKey(path)]; ok {
		return pl.refs
	}
	return 0
}

func lockKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
