// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
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
package analyze

import (
	"time"

	"github.com/alphadose/haxmap"
	"github.com/tokyoquant/edinetdata/data"
)

type cachedResult struct {
	result   *data.AnalysisResult
	storedAt time.Time
}

// CacheStore is a TTL'd in-process store of completed analysis results keyed
// by ticker. Writers overwrite; readers never block writers.
type CacheStore struct {
	entries *haxmap.Map[string, *cachedResult]
	ttl     time.Duration
	now     func() time.Time
}

// NewCacheStore builds a cache with the given TTL; non-positive durations
// default to 24 hours
func NewCacheStore(ttl time.Duration) *CacheStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &CacheStore{
		entries: haxmap.New[string, *cachedResult](),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached result for the ticker, or nil when absent or
// expired
func (cache *CacheStore) Get(ticker string) *data.AnalysisResult {
	entry, ok := cache.entries.Get(ticker)
	if !ok {
		return nil
	}

	if cache.now().Sub(entry.storedAt) >= cache.ttl {
		cache.entries.Del(ticker)
		return nil
	}

	return entry.result
}

// Put stores the result for the ticker
func (cache *CacheStore) Put(ticker string, result *data.AnalysisResult) {
	cache.entries.Set(ticker, &cachedResult{result: result, storedAt: cache.now()})
}

// Invalidate removes the cached result for the ticker
func (cache *CacheStore) Invalidate(ticker string) {
	cache.entries.Del(ticker)
}
