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
package library

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xeonx/timeago"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary returns a description of the library in markdown
func (myLibrary *Library) Summary(ctx context.Context) (string, error) {
	p := message.NewPrinter(language.English)
	builder := strings.Builder{}

	if _, err := builder.WriteString("# EDINET Data Library\n"); err != nil {
		return "", err
	}

	if _, err := builder.WriteString("## Details\n\n"); err != nil {
		return "", err
	}

	// Database connection string
	if _, err := builder.WriteString(fmt.Sprintf("Database: %s\n\n", myLibrary.DBUrl)); err != nil {
		return "", err
	}

	// Number of tracked companies
	numCompanies, err := myLibrary.NumCompanies(ctx)
	if err != nil {
		return "", err
	}

	if _, err := builder.WriteString(p.Sprintf("  * Companies Tracked: %d\n", numCompanies)); err != nil {
		return "", err
	}

	// Filing counts
	totalFilings, processedFilings, err := myLibrary.NumFilings(ctx)
	if err != nil {
		return "", err
	}

	if _, err := builder.WriteString(p.Sprintf("  * Filings: %d (%d analyzed)\n", totalFilings, processedFilings)); err != nil {
		return "", err
	}

	// Margin snapshot count
	numMargin, err := myLibrary.NumMarginRecords(ctx)
	if err != nil {
		return "", err
	}

	if _, err := builder.WriteString(p.Sprintf("  * Margin Trading Records: %d\n\n", numMargin)); err != nil {
		return "", err
	}

	// Last updated time
	lastUpdated, err := myLibrary.LastUpdated(ctx)
	if err != nil {
		return "", err
	}

	age := timeago.English.Format(lastUpdated)

	if lastUpdated.Equal(time.Time{}) {
		if _, err := builder.WriteString("Last Updated: Never\n\n"); err != nil {
			return "", err
		}
	} else {
		if _, err := builder.WriteString(fmt.Sprintf("Last Updated: %s (%s)\n\n", age, lastUpdated.Local().Format("01/02/2006"))); err != nil {
			return "", err
		}
	}

	// Companies
	if _, err := builder.WriteString("## Companies\n\n"); err != nil {
		return "", err
	}

	companies, err := myLibrary.Companies(ctx)
	if err != nil {
		return "", err
	}

	for _, company := range companies {
		if !company.Active {
			continue
		}

		analyzed := "never analyzed"
		if !company.LatestAnalysisDate.Equal(time.Time{}) {
			analyzed = fmt.Sprintf("analyzed %s", timeago.English.Format(company.LatestAnalysisDate))
		}

		if _, err := builder.WriteString(p.Sprintf("  * %s %s [%s] (%s)\n", company.Ticker,
			company.Name, company.EdinetCode, analyzed)); err != nil {
			return "", err
		}
	}

	if _, err := builder.WriteString("\n## Inactive companies\n\n"); err != nil {
		return "", err
	}

	for _, company := range companies {
		if company.Active {
			continue
		}

		if _, err := builder.WriteString(p.Sprintf("  * %s %s [%s]\n", company.Ticker,
			company.Name, company.EdinetCode)); err != nil {
			return "", err
		}
	}

	// Recent margin ingestions
	if _, err := builder.WriteString("\n## Recent margin ingestions\n\n"); err != nil {
		return "", err
	}

	logs, err := myLibrary.RecentIngestions(ctx, 10)
	if err != nil {
		return "", err
	}

	for _, entry := range logs {
		if _, err := builder.WriteString(p.Sprintf("  * %s %s (%d records) [%s]\n",
			entry.TargetDate.Format("01/02/2006"), entry.Status, entry.RecordsCount,
			entry.ID.String()[:6])); err != nil {
			return "", err
		}
	}

	return builder.String(), nil
}
