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
	"context"
	"fmt"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
	"github.com/tokyoquant/edinetdata/data"
	"github.com/tokyoquant/edinetdata/library"
)

// ResultSentinel prefixes the record count a worker reports on stdout
const ResultSentinel = "WORKER_RESULT:"

// cellGapPoints is the horizontal whitespace that separates two table cells
// in the JPX layout
const cellGapPoints = 10.0

// issuePattern parses the issue name and ticker out of the first cell:
// "B <name> <ticker> 普通株式"
var issuePattern = regexp.MustCompile(`^B\s+(.+?)\s+([0-9]{4,5})\s*普通株式`)

// WorkerOptions describe one worker's page window
type WorkerOptions struct {
	PDFPath    string
	ReportDate time.Time
	StartPage  int
	EndPage    int
	BatchSize  int

	// ParquetPath, when set, receives a snapshot of every parsed row
	// before the upserts
	ParquetPath string
}

// RunWorker parses the assigned page window of the margin PDF and upserts
// the rows it finds. The record count is returned for the coordinator's
// sentinel line.
func RunWorker(ctx context.Context, lib *library.Library, opts WorkerOptions) (int, error) {
	logger := zerolog.Ctx(ctx)

	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}

	fh, reader, err := pdf.Open(opts.PDFPath)
	if err != nil {
		return 0, fmt.Errorf("could not open margin pdf: %w", err)
	}
	defer fh.Close()

	if opts.EndPage > reader.NumPage() {
		opts.EndPage = reader.NumPage()
	}

	conn, err := lib.Pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	total := 0
	batch := make([]*data.MarginSnapshot, 0, opts.BatchSize)
	parquetRows := []*data.MarginSnapshot{}

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		if err := data.SaveMarginSnapshots(ctx, conn, batch); err != nil {
			return err
		}

		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for pageNum := opts.StartPage; pageNum <= opts.EndPage; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			logger.Warn().Err(err).Int("Page", pageNum).Msg("could not read pdf page rows")
			continue
		}

		for _, row := range rows {
			cells := groupRowCells(row)
			issue, snapshot, ok := ParseRow(cells, opts.ReportDate)
			if !ok {
				continue
			}

			if err := issue.SaveDB(ctx, conn); err != nil {
				logger.Error().Err(err).Str("Component", "PdfBatchIngestor").Str("Kind", "PersistenceError").
					Str("Ticker", issue.Ticker).Msg("could not save market issue")
				continue
			}

			if opts.ParquetPath != "" {
				parquetRows = append(parquetRows, snapshot)
			}

			batch = append(batch, snapshot)
			if len(batch) >= opts.BatchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}

		// each page releases its decoded content before the next is
		// opened; the ingestor runs close to the memory ceiling
		runtime.GC()
	}

	if err := flush(); err != nil {
		return total, err
	}

	if opts.ParquetPath != "" && len(parquetRows) > 0 {
		if err := SaveToParquet(parquetRows, opts.ParquetPath); err != nil {
			logger.Warn().Err(err).Str("FileName", opts.ParquetPath).Msg("parquet snapshot failed")
		}
	}

	logger.Info().Int("StartPage", opts.StartPage).Int("EndPage", opts.EndPage).Int("NumRecords", total).
		Msg("worker finished page window")

	return total, nil
}

// groupRowCells joins a row's positioned text fragments into cells, starting
// a new cell wherever the horizontal gap exceeds the column threshold
func groupRowCells(row *pdf.Row) []string {
	cells := []string{}
	current := strings.Builder{}
	lastEnd := 0.0

	for i, text := range row.Content {
		if i > 0 && text.X-lastEnd > cellGapPoints {
			cells = append(cells, strings.TrimSpace(current.String()))
			current.Reset()
		} else if i > 0 && text.X > lastEnd {
			// sub-threshold gaps inside one cell read as spacing
			current.WriteString(" ")
		}

		current.WriteString(text.S)
		lastEnd = text.X + text.W
	}

	if current.Len() > 0 {
		cells = append(cells, strings.TrimSpace(current.String()))
	}

	return cells
}

// ParseRow tests the data-row predicate and parses one margin table row.
// Rows carry the issue cell followed by at least nine numeric columns.
func ParseRow(cells []string, reportDate time.Time) (*data.MarketIssue, *data.MarginSnapshot, bool) {
	if len(cells) < 10 {
		return nil, nil, false
	}

	first := cells[0]
	if !strings.HasPrefix(first, "B ") || !strings.Contains(first, "普通株式") {
		return nil, nil, false
	}

	match := issuePattern.FindStringSubmatch(first)
	if match == nil {
		return nil, nil, false
	}

	issue := &data.MarketIssue{
		Ticker: match[2],
		Name:   match[1],
	}

	amounts := make([]int64, 0, 8)
	for _, cell := range cells[1:] {
		amount, ok := ParseSignedAmount(cell)
		if !ok {
			continue
		}

		amounts = append(amounts, amount)
		if len(amounts) == 8 {
			break
		}
	}

	if len(amounts) < 8 {
		return nil, nil, false
	}

	snapshot := &data.MarginSnapshot{
		Ticker:           issue.Ticker,
		ReportDate:       reportDate,
		SellOutstanding:  amounts[0],
		SellDelta:        amounts[1],
		BuyOutstanding:   amounts[2],
		BuyDelta:         amounts[3],
		NegotiableSell:   amounts[4],
		NegotiableBuy:    amounts[5],
		StandardizedSell: amounts[6],
		StandardizedBuy:  amounts[7],
	}

	return issue, snapshot, true
}

// ParseSignedAmount normalizes one numeric table cell: thousand separators
// are stripped and the △/▲ markers read as minus. A bare "-" is zero.
func ParseSignedAmount(cell string) (int64, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "-" || cell == "−" {
		return 0, true
	}

	cell = strings.ReplaceAll(cell, ",", "")
	cell = strings.ReplaceAll(cell, "△", "-")
	cell = strings.ReplaceAll(cell, "▲", "-")

	amount, err := strconv.ParseInt(cell, 10, 64)
	if err != nil {
		return 0, false
	}

	return amount, true
}
