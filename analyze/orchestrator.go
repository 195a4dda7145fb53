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
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/tokyoquant/edinetdata/data"
	"github.com/tokyoquant/edinetdata/edinet"
	"github.com/tokyoquant/edinetdata/extract"
	"github.com/tokyoquant/edinetdata/library"
	"golang.org/x/sync/singleflight"
)

const (
	errNoDocuments   = "分析対象の決算書類が見つかりませんでした。証券コードをご確認ください。"
	errFetchFailed   = "決算書類の取得に失敗しました"
	errExtractFailed = "決算書類からテキストを抽出できませんでした"
	errPersistFailed = "分析結果の保存に失敗しました"
)

type connection = *pgxpool.Conn

// DocumentSearcher is the slice of the document index the orchestrator uses
type DocumentSearcher interface {
	EntriesForCompany(ctx context.Context, ticker string, daysBack int, maxResults int) ([]*edinet.Descriptor, error)
}

// DocumentFetcher is the slice of the disclosure client the orchestrator uses
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, documentID string, typeCode int) ([]byte, error)
}

// ArchiveBackup stores a raw fetched archive; wired to backblaze when
// credentials are configured
type ArchiveBackup interface {
	StoreArchive(ctx context.Context, name string, body []byte) error
}

// Config carries the orchestrator tunables, read once at construction
type Config struct {
	DaysBack         int
	PatternThreshold int64
	RecentWindow     time.Duration
	EdinetCodePrefix string
}

// Orchestrator runs the end-to-end analysis of one ticker: cache probe,
// document discovery, archive fetch, text extraction, the analyzers, and
// idempotent persistence. It never returns an error; failures are reported
// in-band on the result.
type Orchestrator struct {
	library   *library.Library
	searcher  DocumentSearcher
	fetcher   DocumentFetcher
	extractor *extract.Extractor
	sentiment *SentimentAnalyzer
	expert    *ExpertAnalyzer
	cache     *CacheStore
	backup    ArchiveBackup

	group singleflight.Group
	cfg   Config
}

// NewOrchestrator wires the pipeline together. expert and backup may be nil.
func NewOrchestrator(lib *library.Library, searcher DocumentSearcher, fetcher DocumentFetcher,
	extractor *extract.Extractor, sentiment *SentimentAnalyzer, expert *ExpertAnalyzer,
	cache *CacheStore, backup ArchiveBackup, cfg Config) *Orchestrator {
	if cfg.DaysBack <= 0 {
		cfg.DaysBack = 120
	}

	if cfg.PatternThreshold <= 0 {
		cfg.PatternThreshold = DefaultPatternThreshold
	}

	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = 7 * 24 * time.Hour
	}

	if cfg.EdinetCodePrefix == "" {
		cfg.EdinetCodePrefix = "E"
	}

	return &Orchestrator{
		library:   lib,
		searcher:  searcher,
		fetcher:   fetcher,
		extractor: extractor,
		sentiment: sentiment,
		expert:    expert,
		cache:     cache,
		backup:    backup,
		cfg:       cfg,
	}
}

// Search returns candidate filings for a ticker without running the analysis
func (orchestrator *Orchestrator) Search(ctx context.Context, ticker string, daysBack int) ([]*edinet.Descriptor, error) {
	if daysBack <= 0 {
		daysBack = orchestrator.cfg.DaysBack
	}

	candidates, err := orchestrator.searcher.EntriesForCompany(ctx, ticker, daysBack, 10)
	if err != nil {
		return nil, err
	}

	sortCandidates(candidates)
	return candidates, nil
}

// GetOrAnalyze returns the analysis for the ticker, producing it when no
// fresh copy exists. Concurrent calls for the same ticker collapse to a
// single build.
func (orchestrator *Orchestrator) GetOrAnalyze(ctx context.Context, ticker string, forceRefresh bool) *data.AnalysisResult {
	start := time.Now()

	if !forceRefresh {
		if cached := orchestrator.cache.Get(ticker); cached != nil {
			copied := *cached
			copied.FromCache = true
			return &copied
		}
	}

	result, _, _ := orchestrator.group.Do(ticker, func() (interface{}, error) {
		return orchestrator.run(ctx, ticker, forceRefresh, start), nil
	})

	return result.(*data.AnalysisResult)
}

func (orchestrator *Orchestrator) run(ctx context.Context, ticker string, forceRefresh bool, start time.Time) *data.AnalysisResult {
	logger := zerolog.Ctx(ctx).With().Str("Ticker", ticker).Logger()
	ctx = logger.WithContext(ctx)

	conn, err := orchestrator.library.Pool.Acquire(ctx)
	if err != nil {
		return orchestrator.failure(&logger, "Orchestrator", "PersistenceError", ticker, err, errPersistFailed, start)
	}
	defer conn.Release()

	// a recent processed filing short-circuits the remote search entirely
	if !forceRefresh {
		latest, err := data.LatestFilingForTicker(ctx, conn, ticker)
		if err == nil && latest != nil && latest.Processed &&
			time.Since(latest.CreatedOn) < orchestrator.cfg.RecentWindow {
			if result := orchestrator.reserialize(ctx, conn, ticker, latest, start); result != nil {
				orchestrator.cache.Put(ticker, result)
				return result
			}
		}
	}

	company, err := data.CompanyByTicker(ctx, conn, ticker)
	if err != nil && err != data.ErrCompanyNotFound {
		return orchestrator.failure(&logger, "Orchestrator", "PersistenceError", ticker, err, errPersistFailed, start)
	}

	candidates, err := orchestrator.searcher.EntriesForCompany(ctx, ticker, orchestrator.cfg.DaysBack, 10)
	if err != nil {
		return orchestrator.failure(&logger, "DocumentIndex", remoteKind(err), ticker, err, errNoDocuments, start)
	}

	if len(candidates) == 0 {
		return orchestrator.failure(&logger, "DocumentIndex", "NotFound", ticker, nil, errNoDocuments, start)
	}

	sortCandidates(candidates)
	descriptor := candidates[0]

	if company == nil {
		company = &data.Company{
			Ticker:             ticker,
			Name:               descriptor.FilerName,
			EdinetCode:         descriptor.EdinetCode,
			FiscalYearEndMonth: 3,
			Active:             true,
		}

		if company.EdinetCode == "" {
			company.DeriveEdinetCode(orchestrator.cfg.EdinetCodePrefix)
		}
	}

	archive, err := orchestrator.fetcher.FetchDocument(ctx, descriptor.DocumentID, edinet.DocTypeXBRL)
	if err != nil {
		return orchestrator.failure(&logger, "DisclosureClient", remoteKind(err), ticker, err, errFetchFailed, start)
	}

	orchestrator.backupArchive(ctx, descriptor, archive)

	sections, err := orchestrator.extractor.Extract(archive)
	if err != nil {
		return orchestrator.failure(&logger, "ArchiveExtractor", "ExtractError", ticker, err, errExtractFailed, start)
	}

	if len(sections) == 0 {
		return orchestrator.failure(&logger, "ArchiveExtractor", "ExtractError", ticker, nil, errExtractFailed, start)
	}

	if err := company.SaveDB(ctx, conn); err != nil {
		return orchestrator.failure(&logger, "Orchestrator", "PersistenceError", ticker, err, errPersistFailed, start)
	}

	filing := &data.Filing{
		DocumentID:     descriptor.DocumentID,
		Ticker:         ticker,
		ReportType:     data.ReportTypeForDocCode(descriptor.DocTypeCode),
		FiscalYear:     fmt.Sprintf("%d", descriptor.SubmitDateTime.Year()),
		Quarter:        data.QuarterForDescription(descriptor.DocDescription),
		SubmissionDate: descriptor.SubmitDateTime,
		CreatedOn:      time.Now(),
	}

	if err := filing.SaveDB(ctx, conn); err != nil {
		return orchestrator.failure(&logger, "Orchestrator", "PersistenceError", ticker, err, errPersistFailed, start)
	}

	fullText := joinSections(sections)

	figures := ExtractCashFlow(fullText)
	pattern := ClassifyPattern(figures, orchestrator.cfg.PatternThreshold)
	health := HealthForPattern(figures, pattern)

	cashFlow := &data.CashFlowArtifact{
		DocumentID:  filing.DocumentID,
		OperatingCF: figures.Operating,
		InvestingCF: figures.Investing,
		FinancingCF: figures.Financing,
		FreeCF:      figures.Free,
		Pattern:     pattern,
		Health:      health,
	}
	cashFlow.Summary = cashFlow.PatternDescription()

	sentimentArtifact := orchestrator.sentiment.Analyze(sections)
	sentimentArtifact.DocumentID = filing.DocumentID
	cashFlow.RiskFactors = riskFactorText(sentimentArtifact)

	orchestrator.compareWithPrevious(ctx, conn, filing, cashFlow, sentimentArtifact)

	if err := cashFlow.SaveDB(ctx, conn); err != nil {
		markFailed(ctx, conn, filing, err)
		return orchestrator.failure(&logger, "Orchestrator", "PersistenceError", ticker, err, errPersistFailed, start)
	}

	if err := sentimentArtifact.SaveDB(ctx, conn); err != nil {
		markFailed(ctx, conn, filing, err)
		return orchestrator.failure(&logger, "Orchestrator", "PersistenceError", ticker, err, errPersistFailed, start)
	}

	var expertArtifact *data.AIExpertArtifact
	if orchestrator.expert != nil {
		expertArtifact = orchestrator.expert.Analyze(ctx, fullText, filing, sentimentArtifact)
		if err := expertArtifact.SaveDB(ctx, conn); err != nil {
			markFailed(ctx, conn, filing, err)
			return orchestrator.failure(&logger, "Orchestrator", "PersistenceError", ticker, err, errPersistFailed, start)
		}
	}

	if err := filing.MarkProcessed(ctx, conn); err != nil {
		return orchestrator.failure(&logger, "Orchestrator", "PersistenceError", ticker, err, errPersistFailed, start)
	}

	if err := company.MarkAnalyzed(ctx, conn, time.Now()); err != nil {
		logger.Warn().Err(err).Msg("could not update company analysis marker")
	}

	result := assembleResult(company, filing, cashFlow, sentimentArtifact, expertArtifact, time.Since(start))
	orchestrator.cache.Put(ticker, result)

	logger.Info().Str("DocumentID", filing.DocumentID).Str("Pattern", string(pattern)).
		Str("Health", string(health)).Dur("Elapsed", time.Since(start)).Msg("analysis complete")

	return result
}

// reserialize rebuilds the formatted result from persisted artifacts
func (orchestrator *Orchestrator) reserialize(ctx context.Context, conn connection, ticker string, filing *data.Filing, start time.Time) *data.AnalysisResult {
	company, err := data.CompanyByTicker(ctx, conn, ticker)
	if err != nil {
		return nil
	}

	cashFlow, err := data.CashFlowForDocument(ctx, conn, filing.DocumentID)
	if err != nil || cashFlow == nil {
		return nil
	}

	sentimentArtifact, err := data.SentimentForDocument(ctx, conn, filing.DocumentID)
	if err != nil || sentimentArtifact == nil {
		return nil
	}

	expertArtifact, err := data.AIExpertForDocument(ctx, conn, filing.DocumentID)
	if err != nil {
		return nil
	}

	return assembleResult(company, filing, cashFlow, sentimentArtifact, expertArtifact, time.Since(start))
}

// compareWithPrevious fills change rates against the newest processed filing
// submitted before this one
func (orchestrator *Orchestrator) compareWithPrevious(ctx context.Context, conn connection, filing *data.Filing,
	cashFlow *data.CashFlowArtifact, sentimentArtifact *data.SentimentArtifact) {
	previous, err := data.PreviousFilingForTicker(ctx, conn, filing.Ticker, filing.SubmissionDate)
	if err != nil || previous == nil {
		return
	}

	previousCF, err := data.CashFlowForDocument(ctx, conn, previous.DocumentID)
	if err == nil && previousCF != nil && previousCF.OperatingCF != nil && cashFlow.OperatingCF != nil &&
		*previousCF.OperatingCF != 0 {
		prior := float64(*previousCF.OperatingCF)
		if prior < 0 {
			prior = -prior
		}

		rate := (float64(*cashFlow.OperatingCF) - float64(*previousCF.OperatingCF)) / prior * 100
		cashFlow.ChangeRate = &rate
	}

	previousSentiment, err := data.SentimentForDocument(ctx, conn, previous.DocumentID)
	if err == nil && previousSentiment != nil {
		change := sentimentArtifact.SentimentScore - previousSentiment.SentimentScore
		sentimentArtifact.SentimentChange = &change
	}
}

func (orchestrator *Orchestrator) backupArchive(ctx context.Context, descriptor *edinet.Descriptor, archive []byte) {
	if orchestrator.backup == nil {
		return
	}

	name := fmt.Sprintf("edinet/%d/%s.zip", descriptor.SubmitDateTime.Year(), descriptor.DocumentID)
	if err := orchestrator.backup.StoreArchive(ctx, name, archive); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("Name", name).Msg("raw archive backup failed")
	}
}

func (orchestrator *Orchestrator) failure(logger *zerolog.Logger, component string, kind string,
	ticker string, err error, message string, start time.Time) *data.AnalysisResult {
	event := logger.Error().Str("Component", component).Str("Kind", kind).Str("Ticker", ticker)
	if err != nil {
		event = event.Err(err)
	}
	event.Msg(message)

	return &data.AnalysisResult{
		Success:        false,
		Error:          message,
		ProcessingTime: time.Since(start).Seconds(),
	}
}

// remoteKind distinguishes credential failures from ordinary API failures
func remoteKind(err error) string {
	if errors.Is(err, edinet.ErrAuth) {
		return "AuthError"
	}

	return "RemoteError"
}

// sortCandidates orders descriptors by document type priority, then recency
func sortCandidates(candidates []*edinet.Descriptor) {
	sort.SliceStable(candidates, func(i, j int) bool {
		pi := edinet.DocTypePriority(candidates[i].DocTypeCode)
		pj := edinet.DocTypePriority(candidates[j].DocTypeCode)
		if pi != pj {
			return pi < pj
		}

		return candidates[i].SubmitDateTime.After(candidates[j].SubmitDateTime)
	})
}

func joinSections(sections map[string]string) string {
	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, sections[name])
	}

	return strings.Join(parts, "\n")
}

func riskFactorText(sentimentArtifact *data.SentimentArtifact) string {
	factors := []string{}
	for _, keyword := range []string{"リスク", "訴訟", "災害", "為替変動", "規制強化", "競争激化", "減損"} {
		if contexts, ok := sentimentArtifact.Keywords[keyword]; ok && len(contexts) > 0 {
			factors = append(factors, contexts[0])
		}
	}

	return strings.Join(factors, " / ")
}

func markFailed(ctx context.Context, conn connection, filing *data.Filing, reason error) {
	if err := filing.MarkFailed(ctx, conn, reason.Error()); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("DocumentID", filing.DocumentID).Msg("could not record filing failure")
	}
}
