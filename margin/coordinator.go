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
package margin

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hako/durafmt"
	"github.com/rs/zerolog"
	"github.com/tokyoquant/edinetdata/backblaze"
	"github.com/tokyoquant/edinetdata/data"
	"github.com/tokyoquant/edinetdata/healthcheck"
	"github.com/tokyoquant/edinetdata/library"
)

// workerWallClockLimit is the hard ceiling on one worker subprocess; the
// boundary exists as a memory reset, not a scheduling hint
const workerWallClockLimit = time.Hour

// CoordinatorOptions configure one ingestion run
type CoordinatorOptions struct {
	ReportDate         time.Time
	Force              bool
	PagesPerBatch      int
	BatchSize          int
	IdleInterval       time.Duration
	WorkersCoordinated bool

	// HealthCheckID enables healthchecks.io pings around the run
	HealthCheckID string

	// BackblazeBucket enables raw-PDF and parquet archival
	BackblazeBucket string
}

// RunCoordinator ingests one weekly margin PDF. Page windows are handed to
// workers either in-process or as subprocesses (one per batch, killed after
// an hour); a failed window does not stop the remaining ones. One
// IngestionLog row records the run.
func RunCoordinator(ctx context.Context, lib *library.Library, opts CoordinatorOptions) error {
	logger := zerolog.Ctx(ctx)
	start := time.Now()

	if opts.PagesPerBatch <= 0 {
		opts.PagesPerBatch = 10
	}

	if opts.IdleInterval <= 0 {
		opts.IdleInterval = 5 * time.Second
	}

	conn, err := lib.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	entry := data.NewIngestionLog(opts.ReportDate, SourceURL(opts.ReportDate))
	if err := entry.SaveDB(ctx, conn); err != nil {
		return err
	}

	if opts.HealthCheckID != "" {
		healthcheck.PingStart(opts.HealthCheckID)
	}

	fail := func(reason error) error {
		logger.Error().Err(reason).Str("Component", "PdfBatchIngestor").Str("Kind", "RemoteError").
			Str("Date", opts.ReportDate.Format("2006-01-02")).Msg("margin ingestion failed")

		entry.Finish(data.IngestionFailed, reason.Error(), 0)
		if err := entry.SaveDB(ctx, conn); err != nil {
			logger.Warn().Err(err).Msg("could not record failed ingestion")
		}

		if opts.HealthCheckID != "" {
			healthcheck.PingFail(opts.HealthCheckID)
		}

		return reason
	}

	if !opts.Force {
		existing, err := data.MarginSnapshotCount(ctx, conn, opts.ReportDate)
		if err == nil && existing > 0 {
			logger.Info().Int("NumRecords", existing).Msg("margin data already ingested; skipping")
			entry.Finish(data.IngestionSkipped, "data already present", existing)
			if err := entry.SaveDB(ctx, conn); err != nil {
				return err
			}

			if opts.HealthCheckID != "" {
				healthcheck.PingSuccess(opts.HealthCheckID)
			}

			return nil
		}
	}

	tmpdir, err := os.MkdirTemp("", "edinetdata-margin")
	if err != nil {
		return fail(err)
	}
	defer os.RemoveAll(tmpdir)

	pdfPath := filepath.Join(tmpdir, fmt.Sprintf("syumatsu%s00.pdf", opts.ReportDate.Format("20060102")))
	if err := Download(ctx, opts.ReportDate, pdfPath); err != nil {
		return fail(err)
	}

	if opts.BackblazeBucket != "" {
		year := opts.ReportDate.Format("2006")
		if err := backblaze.Upload(pdfPath, opts.BackblazeBucket, "margin/"+year); err != nil {
			logger.Warn().Err(err).Msg("raw pdf upload to backblaze failed")
		}
	}

	pageCount, err := PageCount(pdfPath)
	if err != nil {
		return fail(err)
	}

	numBatches := (pageCount + opts.PagesPerBatch - 1) / opts.PagesPerBatch
	logger.Info().Int("NumPages", pageCount).Int("NumBatches", numBatches).
		Bool("WorkersCoordinated", opts.WorkersCoordinated).Msg("planned margin ingestion")

	total := 0
	for batch := 0; batch < numBatches; batch++ {
		startPage := batch*opts.PagesPerBatch + 1
		endPage := startPage + opts.PagesPerBatch - 1
		if endPage > pageCount {
			endPage = pageCount
		}

		workerOpts := WorkerOptions{
			PDFPath:    pdfPath,
			ReportDate: opts.ReportDate,
			StartPage:  startPage,
			EndPage:    endPage,
			BatchSize:  opts.BatchSize,
		}

		if opts.BackblazeBucket != "" {
			workerOpts.ParquetPath = filepath.Join(tmpdir,
				fmt.Sprintf("margin-%s-p%d.parquet", opts.ReportDate.Format("20060102"), startPage))
		}

		var records int
		if opts.WorkersCoordinated {
			records, err = runWorkerSubprocess(ctx, workerOpts)
		} else {
			records, err = RunWorker(ctx, lib, workerOpts)
		}

		if err != nil {
			// remaining windows proceed; the final count reflects
			// partial success
			logger.Error().Err(err).Str("Component", "PdfBatchIngestor").Str("Kind", "WorkerTimeout").
				Int("StartPage", startPage).Int("EndPage", endPage).Msg("worker window failed")
		} else {
			total += records
		}

		if workerOpts.ParquetPath != "" {
			if _, statErr := os.Stat(workerOpts.ParquetPath); statErr == nil {
				year := opts.ReportDate.Format("2006")
				if err := backblaze.Upload(workerOpts.ParquetPath, opts.BackblazeBucket, "margin/"+year); err != nil {
					logger.Warn().Err(err).Msg("parquet upload to backblaze failed")
				}
			}
		}

		if batch < numBatches-1 {
			time.Sleep(opts.IdleInterval)
		}
	}

	entry.Finish(data.IngestionSuccess, fmt.Sprintf("%d batches", numBatches), total)
	if err := entry.SaveDB(ctx, conn); err != nil {
		return err
	}

	if opts.HealthCheckID != "" {
		healthcheck.PingSuccess(opts.HealthCheckID)
	}

	logger.Info().Int("NumRecords", total).
		Str("Runtime", durafmt.Parse(time.Since(start)).LimitFirstN(2).String()).
		Msg("margin ingestion complete")

	return nil
}

// runWorkerSubprocess re-invokes this binary as a hidden margin-worker
// command and reads the record count off its stdout sentinel line
func runWorkerSubprocess(ctx context.Context, opts WorkerOptions) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, err
	}

	workerCtx, cancel := context.WithTimeout(ctx, workerWallClockLimit)
	defer cancel()

	args := []string{
		"margin-worker",
		"--pdf", opts.PDFPath,
		"--date", opts.ReportDate.Format("20060102"),
		"--start-page", strconv.Itoa(opts.StartPage),
		"--end-page", strconv.Itoa(opts.EndPage),
	}

	if opts.BatchSize > 0 {
		args = append(args, "--batch-size", strconv.Itoa(opts.BatchSize))
	}

	if opts.ParquetPath != "" {
		args = append(args, "--parquet", opts.ParquetPath)
	}

	cmd := exec.CommandContext(workerCtx, exe, args...)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, err
	}

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	records := 0
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, ResultSentinel) {
			continue
		}

		if n, err := strconv.Atoi(strings.TrimPrefix(line, ResultSentinel)); err == nil {
			records = n
		}
	}

	if err := cmd.Wait(); err != nil {
		if workerCtx.Err() == context.DeadlineExceeded {
			return records, fmt.Errorf("worker exceeded wall-clock limit: %w", workerCtx.Err())
		}

		return records, err
	}

	return records, nil
}
