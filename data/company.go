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
package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrCompanyNotFound = errors.New("company not found")

// Company is a listed entity keyed by its 4-5 digit domestic ticker.
type Company struct {
	Ticker             string    `db:"ticker" json:"ticker"`
	Name               string    `db:"name" json:"name"`
	EdinetCode         string    `db:"edinet_code" json:"edinet_code"`
	FiscalYearEndMonth int       `db:"fiscal_year_end_month" json:"fiscal_year_end_month"`
	Active             bool      `db:"active" json:"active"`
	LatestAnalysisDate time.Time `db:"latest_analysis_date" json:"latest_analysis_date"`
}

func (company *Company) MarshalZerologObject(e *zerolog.Event) {
	e.Str("Ticker", company.Ticker)
	e.Str("Name", company.Name)
	e.Str("EdinetCode", company.EdinetCode)
	e.Bool("Active", company.Active)
}

// DeriveEdinetCode fills the EDINET code from the ticker when the disclosure
// index did not carry one: the ticker is zero-padded to 5 digits behind the
// configured prefix.
func (company *Company) DeriveEdinetCode(prefix string) {
	if company.EdinetCode != "" {
		return
	}

	company.EdinetCode = fmt.Sprintf("%s%05s", prefix, company.Ticker)
}

// CompanyByTicker loads a single company record. ErrCompanyNotFound is
// returned when the ticker is unknown.
func CompanyByTicker(ctx context.Context, dbConn *pgxpool.Conn, ticker string) (*Company, error) {
	company := &Company{}

	rows, err := dbConn.Query(ctx, `SELECT ticker, name, edinet_code, fiscal_year_end_month, active,
		coalesce(latest_analysis_date, '0001-01-01'::timestamp) as latest_analysis_date
		FROM companies WHERE ticker=$1 LIMIT 1`, ticker)
	if err != nil {
		return nil, err
	}

	if err := pgxscan.ScanOne(company, rows); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCompanyNotFound
		}

		return nil, err
	}

	return company, nil
}

func (company *Company) SaveDB(ctx context.Context, dbConn *pgxpool.Conn) error {
	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err := tx.Commit(ctx); err != nil {
			log.Error().Err(err).Msg("error committing company transaction to database")
		}
	}()

	sql := `INSERT INTO companies (
		"ticker",
		"name",
		"edinet_code",
		"fiscal_year_end_month",
		"active",
		"latest_analysis_date"
	) VALUES (
		$1, $2, $3, $4, $5, $6
	) ON CONFLICT ON CONSTRAINT companies_pkey DO UPDATE SET
		name = EXCLUDED.name,
		edinet_code = EXCLUDED.edinet_code,
		fiscal_year_end_month = EXCLUDED.fiscal_year_end_month,
		active = EXCLUDED.active,
		latest_analysis_date = EXCLUDED.latest_analysis_date`

	_, err = tx.Exec(ctx, sql, company.Ticker, company.Name, company.EdinetCode,
		company.FiscalYearEndMonth, company.Active, company.LatestAnalysisDate)
	if err != nil {
		log.Error().Err(err).Str("SQL", sql).Str("Ticker", company.Ticker).Msg("save company to DB failed")
		return err
	}

	return nil
}

// MarkAnalyzed stamps the latest-analysis marker. The latest filing itself is
// never stored on the company row; it is derived on read.
func (company *Company) MarkAnalyzed(ctx context.Context, dbConn *pgxpool.Conn, when time.Time) error {
	company.LatestAnalysisDate = when

	_, err := dbConn.Exec(ctx, `UPDATE companies SET latest_analysis_date=$1 WHERE ticker=$2`,
		when, company.Ticker)
	return err
}
