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
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Lister is the slice of the client the index depends on
type Lister interface {
	ListDocuments(ctx context.Context, date time.Time) ([]*Descriptor, error)
}

type cachedListing struct {
	descriptors []*Descriptor
	fetchedAt   time.Time
}

// DocumentIndex is a date-sharded cache of disclosure listings. Same-day
// listings are mutable as new filings arrive, so entries expire after a TTL;
// concurrent requests for the same date collapse to a single fetch.
type DocumentIndex struct {
	client   Lister
	fallback Lister

	cache *haxmap.Map[string, *cachedListing]
	group singleflight.Group
	ttl   time.Duration

	aliases *AliasTable
	now     func() time.Time
}

// NewDocumentIndex builds an index over the primary client with an optional
// v1 fallback used when the primary fails with a RemoteError
func NewDocumentIndex(client Lister, fallback Lister, ttl time.Duration, aliases *AliasTable) *DocumentIndex {
	if ttl <= 0 {
		ttl = time.Hour
	}

	if aliases == nil {
		aliases = NewAliasTable()
	}

	return &DocumentIndex{
		client:   client,
		fallback: fallback,
		cache:    haxmap.New[string, *cachedListing](),
		ttl:      ttl,
		aliases:  aliases,
		now:      time.Now,
	}
}

// EntriesForDate returns the listing for the given date, fetching on cache
// miss. Entries are filtered to earnings-related document types unless
// includeNonFinancial is set.
func (index *DocumentIndex) EntriesForDate(ctx context.Context, date time.Time, includeNonFinancial bool) ([]*Descriptor, error) {
	key := date.Format("2006-01-02")

	if cached, ok := index.cache.Get(key); ok {
		if index.now().Sub(cached.fetchedAt) < index.ttl {
			return filterListing(cached.descriptors, includeNonFinancial), nil
		}
	}

	listing, err, _ := index.group.Do(key, func() (interface{}, error) {
		// re-check after acquiring the flight; a concurrent caller may
		// have refreshed the entry already
		if cached, ok := index.cache.Get(key); ok {
			if index.now().Sub(cached.fetchedAt) < index.ttl {
				return cached.descriptors, nil
			}
		}

		descriptors, err := index.fetch(ctx, date)
		if err != nil {
			return nil, err
		}

		index.cache.Set(key, &cachedListing{descriptors: descriptors, fetchedAt: index.now()})
		return descriptors, nil
	})
	if err != nil {
		return nil, err
	}

	return filterListing(listing.([]*Descriptor), includeNonFinancial), nil
}

func (index *DocumentIndex) fetch(ctx context.Context, date time.Time) ([]*Descriptor, error) {
	logger := zerolog.Ctx(ctx)

	descriptors, err := index.client.ListDocuments(ctx, date)
	if err == nil {
		return descriptors, nil
	}

	var remoteError *RemoteError
	if index.fallback != nil && errors.As(err, &remoteError) {
		logger.Warn().Int("Code", remoteError.Code).Str("Date", date.Format("2006-01-02")).
			Msg("primary edinet endpoint failed; retrying against v1")
		return index.fallback.ListDocuments(ctx, date)
	}

	return nil, err
}

// EntriesForCompany walks business days backward looking for filings by the
// given ticker. The search is phased: 3, 7, and 14 days are tried before the
// full window so that the common case of a recent filer stays cheap.
func (index *DocumentIndex) EntriesForCompany(ctx context.Context, ticker string, daysBack int, maxResults int) ([]*Descriptor, error) {
	logger := zerolog.Ctx(ctx)

	if daysBack <= 0 {
		daysBack = 120
	}

	if maxResults <= 0 {
		maxResults = 10
	}

	phases := []int{3, 7, 14, daysBack}
	for _, phase := range phases {
		if phase > daysBack {
			phase = daysBack
		}

		matches, err := index.scanWindow(ctx, ticker, phase, maxResults)
		if err != nil {
			return nil, err
		}

		if len(matches) > 0 {
			sort.Slice(matches, func(i, j int) bool {
				return matches[i].SubmitDateTime.After(matches[j].SubmitDateTime)
			})

			if len(matches) > maxResults {
				matches = matches[:maxResults]
			}

			logger.Debug().Str("Ticker", ticker).Int("Phase", phase).Int("NumMatches", len(matches)).
				Msg("found candidate filings")

			return matches, nil
		}

		if phase >= daysBack {
			break
		}
	}

	return []*Descriptor{}, nil
}

func (index *DocumentIndex) scanWindow(ctx context.Context, ticker string, windowDays int, maxResults int) ([]*Descriptor, error) {
	logger := zerolog.Ctx(ctx)

	matches := make([]*Descriptor, 0, maxResults)
	seen := make(map[string]bool)

	date := index.now()
	for businessDays := 0; businessDays < windowDays; date = date.AddDate(0, 0, -1) {
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			continue
		}
		businessDays++

		listing, err := index.EntriesForDate(ctx, date, false)
		if err != nil {
			// a bad key fails every subsequent day the same way
			if errors.Is(err, ErrAuth) {
				return nil, err
			}

			// transient remote failures skip to the previous day
			logger.Warn().Err(err).Str("Date", date.Format("2006-01-02")).
				Msg("listing fetch failed; advancing to previous day")
			continue
		}

		for _, descriptor := range listing {
			if seen[descriptor.DocumentID] {
				continue
			}

			if !index.descriptorMatches(ticker, descriptor) {
				continue
			}

			seen[descriptor.DocumentID] = true
			matches = append(matches, descriptor)

			if len(matches) >= maxResults {
				return matches, nil
			}
		}
	}

	return matches, nil
}

func (index *DocumentIndex) descriptorMatches(ticker string, descriptor *Descriptor) bool {
	if descriptor.SecCode != "" && strings.HasPrefix(descriptor.SecCode, ticker) {
		return true
	}

	return index.aliases.Matches(ticker, descriptor.FilerName)
}

// BuildIndex pre-warms the cache for every business day in the window and
// returns the number of descriptors loaded
func (index *DocumentIndex) BuildIndex(ctx context.Context, daysBack int) (int, error) {
	logger := zerolog.Ctx(ctx)

	total := 0
	date := index.now()
	for businessDays := 0; businessDays < daysBack; date = date.AddDate(0, 0, -1) {
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			continue
		}
		businessDays++

		listing, err := index.EntriesForDate(ctx, date, true)
		if err != nil {
			if errors.Is(err, ErrAuth) {
				return total, err
			}

			logger.Warn().Err(err).Str("Date", date.Format("2006-01-02")).Msg("could not pre-warm listing")
			continue
		}

		total += len(listing)
	}

	logger.Info().Int("NumDescriptors", total).Int("DaysBack", daysBack).Msg("document index built")
	return total, nil
}

func filterListing(descriptors []*Descriptor, includeNonFinancial bool) []*Descriptor {
	if includeNonFinancial {
		out := make([]*Descriptor, len(descriptors))
		copy(out, descriptors)
		return out
	}

	out := make([]*Descriptor, 0, len(descriptors))
	for _, descriptor := range descriptors {
		if descriptor.IsEarningsRelated() {
			out = append(out, descriptor)
		}
	}

	return out
}
