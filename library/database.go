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
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tokyoquant/edinetdata/data"
)

type Library struct {
	DBUrl string

	Pool *pgxpool.Pool
}

// Connect to the database configured for the library
func (myLibrary *Library) Connect(ctx context.Context) error {
	if myLibrary.Pool != nil {
		return nil
	}

	pool, err := pgxpool.New(ctx, myLibrary.DBUrl)
	if err != nil {
		return err
	}
	myLibrary.Pool = pool

	return nil
}

// Close the database pool
func (myLibrary *Library) Close() {
	myLibrary.Pool.Close()
}

// NumCompanies returns the count of active companies tracked in the library
func (myLibrary *Library) NumCompanies(ctx context.Context) (int, error) {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	count := 0
	err = conn.QueryRow(ctx, "SELECT count(*) FROM companies WHERE active='t'").Scan(&count)
	return count, err
}

// NumFilings returns the total count of filings in the library along with
// the count of filings that completed text analysis
func (myLibrary *Library) NumFilings(ctx context.Context) (total int, processed int, err error) {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer conn.Release()

	err = conn.QueryRow(ctx, "SELECT count(*), count(*) FILTER (WHERE processed='t') FROM filings").Scan(&total, &processed)
	return total, processed, err
}

// LastUpdated returns the submission date of the newest filing in the library
func (myLibrary *Library) LastUpdated(ctx context.Context) (time.Time, error) {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer conn.Release()

	var lastUpdated time.Time
	err = conn.QueryRow(ctx, "SELECT coalesce(max(submission_date), '0001-01-01'::timestamp) FROM filings").Scan(&lastUpdated)
	if err != nil {
		return time.Time{}, err
	}

	return lastUpdated, nil
}

// NumMarginRecords returns the total count of weekly margin trading snapshots
func (myLibrary *Library) NumMarginRecords(ctx context.Context) (int, error) {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	count := 0
	err = conn.QueryRow(ctx, "SELECT count(*) FROM margin_snapshots").Scan(&count)
	return count, err
}

// Companies returns all companies registered in the library
func (myLibrary *Library) Companies(ctx context.Context) ([]*data.Company, error) {
	var companies []*data.Company
	err := pgxscan.Select(ctx, myLibrary.Pool, &companies,
		`SELECT ticker, name, edinet_code, fiscal_year_end_month, active,
coalesce(latest_analysis_date, '0001-01-01'::timestamp) as latest_analysis_date
FROM companies ORDER BY ticker`)
	return companies, err
}

// RecentIngestions returns the most recent margin data ingestion log entries
func (myLibrary *Library) RecentIngestions(ctx context.Context, limit int) ([]*data.IngestionLog, error) {
	var logs []*data.IngestionLog
	err := pgxscan.Select(ctx, myLibrary.Pool, &logs,
		`SELECT id, target_date, status, message, records_count, source_url, created_on
FROM ingestion_logs ORDER BY created_on DESC LIMIT $1`, limit)
	return logs, err
}
