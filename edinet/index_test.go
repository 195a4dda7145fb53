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
package edinet

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// scriptedLister serves canned listings keyed by date and counts calls
type scriptedLister struct {
	mu       sync.Mutex
	listings map[string][]*Descriptor
	err      error
	calls    map[string]int
}

func newScriptedLister() *scriptedLister {
	return &scriptedLister{
		listings: map[string][]*Descriptor{},
		calls:    map[string]int{},
	}
}

func (lister *scriptedLister) add(date time.Time, descriptors ...*Descriptor) {
	lister.listings[date.Format("2006-01-02")] = descriptors
}

func (lister *scriptedLister) ListDocuments(_ context.Context, date time.Time) ([]*Descriptor, error) {
	lister.mu.Lock()
	defer lister.mu.Unlock()

	key := date.Format("2006-01-02")
	lister.calls[key]++

	if lister.err != nil {
		return nil, lister.err
	}

	return lister.listings[key], nil
}

func (lister *scriptedLister) callCount(date time.Time) int {
	lister.mu.Lock()
	defer lister.mu.Unlock()
	return lister.calls[date.Format("2006-01-02")]
}

func earningsDoc(id string, secCode string, submitted time.Time) *Descriptor {
	return &Descriptor{
		DocumentID:     id,
		SecCode:        secCode,
		DocTypeCode:    "120",
		SubmitDateTime: submitted,
		XbrlFlag:       true,
	}
}

var _ = Describe("DocumentIndex", func() {
	var (
		lister *scriptedLister
		index  *DocumentIndex
		clock  time.Time
		ctx    context.Context
	)

	// 2025-06-02 is a Monday
	monday := time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC)

	BeforeEach(func() {
		lister = newScriptedLister()
		index = NewDocumentIndex(lister, nil, time.Hour, nil)
		clock = monday
		index.now = func() time.Time { return clock }
		ctx = context.Background()
	})

	Describe("EntriesForDate", func() {
		It("fetches once and serves subsequent calls from cache", func() {
			lister.add(monday, earningsDoc("S100AAAA", "72030", monday))

			for i := 0; i < 3; i++ {
				listing, err := index.EntriesForDate(ctx, monday, false)
				Expect(err).NotTo(HaveOccurred())
				Expect(listing).To(HaveLen(1))
			}

			Expect(lister.callCount(monday)).To(Equal(1))
		})

		It("refetches after the TTL expires", func() {
			lister.add(monday, earningsDoc("S100AAAA", "72030", monday))

			_, err := index.EntriesForDate(ctx, monday, false)
			Expect(err).NotTo(HaveOccurred())

			clock = clock.Add(2 * time.Hour)
			_, err = index.EntriesForDate(ctx, monday, false)
			Expect(err).NotTo(HaveOccurred())

			Expect(lister.callCount(monday)).To(Equal(2))
		})

		It("filters to earnings-related types unless asked otherwise", func() {
			lister.add(monday,
				earningsDoc("S100AAAA", "72030", monday),
				&Descriptor{DocumentID: "S100ZZZZ", DocTypeCode: "030", SubmitDateTime: monday})

			filtered, err := index.EntriesForDate(ctx, monday, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(filtered).To(HaveLen(1))

			everything, err := index.EntriesForDate(ctx, monday, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(everything).To(HaveLen(2))
		})

		It("falls back to the v1 lister on remote errors", func() {
			primary := newScriptedLister()
			primary.err = &RemoteError{Code: 500, Message: "backend down"}

			fallback := newScriptedLister()
			fallback.add(monday, earningsDoc("S100V1DOC", "72030", monday))

			index = NewDocumentIndex(primary, fallback, time.Hour, nil)
			index.now = func() time.Time { return clock }

			listing, err := index.EntriesForDate(ctx, monday, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(listing).To(HaveLen(1))
			Expect(listing[0].DocumentID).To(Equal("S100V1DOC"))
		})

		It("does not fall back on auth errors", func() {
			primary := newScriptedLister()
			primary.err = ErrAuth

			fallback := newScriptedLister()
			fallback.add(monday, earningsDoc("S100V1DOC", "72030", monday))

			index = NewDocumentIndex(primary, fallback, time.Hour, nil)
			index.now = func() time.Time { return clock }

			_, err := index.EntriesForDate(ctx, monday, false)
			Expect(err).To(MatchError(ErrAuth))
			Expect(fallback.callCount(monday)).To(BeZero())
		})
	})

	Describe("EntriesForCompany", func() {
		It("finds a recent filer in the first phase", func() {
			lister.add(monday, earningsDoc("S100AAAA", "72030", monday))

			matches, err := index.EntriesForCompany(ctx, "7203", 120, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))

			// only the three business days of the first phase were listed
			Expect(lister.callCount(monday.AddDate(0, 0, -7))).To(BeZero())
		})

		It("widens the window until a filing appears", func() {
			// eight business days before Monday 6/2 is Wednesday 5/21
			old := time.Date(2025, time.May, 21, 10, 0, 0, 0, time.UTC)
			lister.add(old, earningsDoc("S100OLD1", "72030", old))

			matches, err := index.EntriesForCompany(ctx, "7203", 120, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].DocumentID).To(Equal("S100OLD1"))
		})

		It("skips weekends while counting business days", func() {
			_, err := index.EntriesForCompany(ctx, "7203", 120, 10)
			Expect(err).NotTo(HaveOccurred())

			saturday := time.Date(2025, time.May, 31, 0, 0, 0, 0, time.UTC)
			Expect(lister.callCount(saturday)).To(BeZero())
		})

		It("matches by securities code prefix", func() {
			lister.add(monday, earningsDoc("S100AAAA", "72030", monday))

			matches, err := index.EntriesForCompany(ctx, "7203", 120, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
		})

		It("matches by company alias when the listing omits the code", func() {
			lister.add(monday, &Descriptor{
				DocumentID:     "S100NAME",
				FilerName:      "トヨタ自動車株式会社",
				DocTypeCode:    "120",
				SubmitDateTime: monday,
			})

			matches, err := index.EntriesForCompany(ctx, "7203", 120, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
		})

		It("orders matches newest first", func() {
			friday := time.Date(2025, time.May, 30, 15, 0, 0, 0, time.UTC)
			lister.add(friday, earningsDoc("S100OLD1", "72030", friday))
			lister.add(monday, earningsDoc("S100NEW1", "72030", monday))

			matches, err := index.EntriesForCompany(ctx, "7203", 120, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))
			Expect(matches[0].DocumentID).To(Equal("S100NEW1"))
		})

		It("returns an empty slice when nothing matches", func() {
			matches, err := index.EntriesForCompany(ctx, "9999", 5, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(BeEmpty())
		})

		It("surfaces auth errors instead of reporting no documents", func() {
			lister.err = ErrAuth

			matches, err := index.EntriesForCompany(ctx, "7203", 120, 10)
			Expect(err).To(MatchError(ErrAuth))
			Expect(matches).To(BeNil())
		})
	})

	Describe("BuildIndex", func() {
		It("counts every descriptor across the warmed window", func() {
			friday := time.Date(2025, time.May, 30, 0, 0, 0, 0, time.UTC)
			lister.add(monday,
				earningsDoc("S100AAAA", "72030", monday),
				&Descriptor{DocumentID: "S100ZZZZ", DocTypeCode: "030", SubmitDateTime: monday})
			lister.add(friday, earningsDoc("S100BBBB", "65010", friday))

			count, err := index.BuildIndex(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(3))
		})

		It("aborts on auth errors", func() {
			lister.err = ErrAuth

			_, err := index.BuildIndex(ctx, 2)
			Expect(err).To(MatchError(ErrAuth))
		})
	})
})
