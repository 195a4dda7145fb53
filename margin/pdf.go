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
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
)

const sourceURLPattern = "https://www.jpx.co.jp/markets/statistics-equities/margin/tvdivq0000001rnl-att/syumatsu%s00.pdf"

// SourceURL returns the JPX weekly margin report URL for the given date
func SourceURL(reportDate time.Time) string {
	return fmt.Sprintf(sourceURLPattern, reportDate.Format("20060102"))
}

// Download fetches the weekly margin PDF and writes it to destPath
func Download(ctx context.Context, reportDate time.Time, destPath string) error {
	logger := zerolog.Ctx(ctx)
	url := SourceURL(reportDate)

	client := resty.New().SetTimeout(5 * time.Minute)
	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return fmt.Errorf("margin pdf download failed: %w", err)
	}

	if resp.StatusCode() >= 300 {
		return fmt.Errorf("margin pdf unavailable: status %d for %s", resp.StatusCode(), url)
	}

	if err := os.WriteFile(destPath, resp.Body(), 0o644); err != nil {
		return fmt.Errorf("could not write margin pdf: %w", err)
	}

	logger.Info().Str("URL", url).Str("Path", destPath).Int("Size", len(resp.Body())).
		Msg("downloaded weekly margin pdf")

	return nil
}

// PageCount opens the PDF just long enough to read its page count
func PageCount(path string) (int, error) {
	fh, reader, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("could not open margin pdf: %w", err)
	}
	defer fh.Close()

	return reader.NumPage(), nil
}
