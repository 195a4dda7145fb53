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

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tokyoquant/edinetdata/data"
)

var _ = Describe("CacheStore", func() {
	var (
		cache *CacheStore
		clock time.Time
	)

	BeforeEach(func() {
		cache = NewCacheStore(time.Hour)
		clock = time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
		cache.now = func() time.Time { return clock }
	})

	It("returns stored results before the TTL elapses", func() {
		cache.Put("7203", &data.AnalysisResult{Company: &data.CompanyBlock{Ticker: "7203"}, Success: true})

		clock = clock.Add(59 * time.Minute)
		result := cache.Get("7203")
		Expect(result).NotTo(BeNil())
		Expect(result.Company.Ticker).To(Equal("7203"))
	})

	It("expires entries once the TTL elapses", func() {
		cache.Put("7203", &data.AnalysisResult{})

		clock = clock.Add(time.Hour)
		Expect(cache.Get("7203")).To(BeNil())
	})

	It("misses on unknown tickers", func() {
		Expect(cache.Get("9984")).To(BeNil())
	})

	It("drops entries on invalidation", func() {
		cache.Put("7203", &data.AnalysisResult{})
		cache.Invalidate("7203")
		Expect(cache.Get("7203")).To(BeNil())
	})

	It("overwrites on repeated puts", func() {
		cache.Put("7203", &data.AnalysisResult{Success: false})
		cache.Put("7203", &data.AnalysisResult{Success: true})
		Expect(cache.Get("7203").Success).To(BeTrue())
	})
})
