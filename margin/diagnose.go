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
	"os"
	"path/filepath"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
)

// Diagnosis is the preflight report for one weekly PDF
type Diagnosis struct {
	SourceURL        string `json:"source_url"`
	FileSize         int64  `json:"file_size_bytes"`
	PageCount        int    `json:"page_count"`
	PagesPerBatch    int    `json:"pages_per_batch"`
	EstimatedBatches int    `json:"estimated_batches"`
	DataRows         int    `json:"data_rows,omitempty"`
}

// Diagnose downloads the margin PDF and reports its size, page count, and
// planned batch split without writing anything to the database. When
// countDataRows is set every page is scanned for candidate data rows.
func Diagnose(ctx context.Context, reportDate time.Time, pagesPerBatch int, countDataRows bool) (*Diagnosis, error) {
	logger := zerolog.Ctx(ctx)

	if pagesPerBatch <= 0 {
		pagesPerBatch = 10
	}

	tmpdir, err := os.MkdirTemp("", "edinetdata-diagnose")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpdir)

	pdfPath := filepath.Join(tmpdir, "margin.pdf")
	if err := Download(ctx, reportDate, pdfPath); err != nil {
		return nil, err
	}

	info, err := os.Stat(pdfPath)
	if err != nil {
		return nil, err
	}

	fh, reader, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("could not open margin pdf: %w", err)
	}
	defer fh.Close()

	diagnosis := &Diagnosis{
		SourceURL:     SourceURL(reportDate),
		FileSize:      info.Size(),
		PageCount:     reader.NumPage(),
		PagesPerBatch: pagesPerBatch,
	}
	diagnosis.EstimatedBatches = (diagnosis.PageCount + pagesPerBatch - 1) / pagesPerBatch

	if countDataRows {
		for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
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
				if _, _, ok := ParseRow(groupRowCells(row), reportDate); ok {
					diagnosis.DataRows++
				}
			}
		}
	}

	logger.Info().Int("PageCount", diagnosis.PageCount).Int("EstimatedBatches", diagnosis.EstimatedBatches).
		Int64("FileSize", diagnosis.FileSize).Msg("margin pdf diagnosis")

	return diagnosis, nil
}
