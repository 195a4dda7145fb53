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
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ReportType string

const (
	AnnualReport    ReportType = "annual"
	QuarterlyReport ReportType = "quarterly"
	SummaryReport   ReportType = "summary"
)

// Filing is one disclosure document. DocumentID is assigned by the disclosure
// authority and globally unique; (ticker, fiscal_year, quarter, report_type)
// is unique as well.
type Filing struct {
	DocumentID      string     `db:"document_id" json:"document_id"`
	Ticker          string     `db:"ticker" json:"ticker"`
	ReportType      ReportType `db:"report_type" json:"report_type"`
	FiscalYear      string     `db:"fiscal_year" json:"fiscal_year"`
	Quarter         string     `db:"quarter" json:"quarter"`
	SubmissionDate  time.Time  `db:"submission_date" json:"submission_date"`
	Processed       bool       `db:"processed" json:"processed"`
	ProcessingError string     `db:"processing_error" json:"processing_error,omitempty"`
	CreatedOn       time.Time  `db:"created_on" json:"created_on"`
}

func (filing *Filing) MarshalZerologObject(e *zerolog.Event) {
	e.Str("DocumentID", filing.DocumentID)
	e.Str("Ticker", filing.Ticker)
	e.Str("ReportType", string(filing.ReportType))
	e.Str("FiscalYear", filing.FiscalYear)
	e.Str("Quarter", filing.Quarter)
	e.Bool("Processed", filing.Processed)
}

// ReportTypeForDocCode maps the authority's docTypeCode onto the report type.
func ReportTypeForDocCode(code string) ReportType {
	switch code {
	case "120", "130":
		return AnnualReport
	case "140":
		return QuarterlyReport
	default:
		return SummaryReport
	}
}

// QuarterForDescription infers the fiscal quarter from a free-form document
// description. Descriptions without a quarter marker default to Q4.
func QuarterForDescription(description string) string {
	switch {
	case strings.Contains(description, "第1四半期") || strings.Contains(description, "第１四半期"):
		return "Q1"
	case strings.Contains(description, "第2四半期") || strings.Contains(description, "第２四半期"):
		return "Q2"
	case strings.Contains(description, "第3四半期") || strings.Contains(description, "第３四半期"):
		return "Q3"
	default:
		return "Q4"
	}
}

// LatestFilingForTicker returns the most recently created filing for a
// company or nil when none exists.
func LatestFilingForTicker(ctx context.Context, dbConn *pgxpool.Conn, ticker string) (*Filing, error) {
	filing := &Filing{}

	rows, err := dbConn.Query(ctx, `SELECT document_id, ticker, report_type, fiscal_year, quarter,
		submission_date, processed, coalesce(processing_error, '') as processing_error, created_on
		FROM filings WHERE ticker=$1 ORDER BY created_on DESC LIMIT 1`, ticker)
	if err != nil {
		return nil, err
	}

	if err := pgxscan.ScanOne(filing, rows); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return filing, nil
}

// PreviousFilingForTicker returns the newest processed filing submitted
// strictly before the given date, for change-rate comparison.
func PreviousFilingForTicker(ctx context.Context, dbConn *pgxpool.Conn, ticker string, before time.Time) (*Filing, error) {
	filing := &Filing{}

	rows, err := dbConn.Query(ctx, `SELECT document_id, ticker, report_type, fiscal_year, quarter,
		submission_date, processed, coalesce(processing_error, '') as processing_error, created_on
		FROM filings WHERE ticker=$1 AND processed='t' AND submission_date < $2
		ORDER BY submission_date DESC LIMIT 1`, ticker, before)
	if err != nil {
		return nil, err
	}

	if err := pgxscan.ScanOne(filing, rows); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return filing, nil
}

func (filing *Filing) SaveDB(ctx context.Context, dbConn *pgxpool.Conn) error {
	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err := tx.Commit(ctx); err != nil {
			log.Error().Err(err).Msg("error committing filing transaction to database")
		}
	}()

	sql := `INSERT INTO filings (
		"document_id",
		"ticker",
		"report_type",
		"fiscal_year",
		"quarter",
		"submission_date",
		"processed",
		"processing_error",
		"created_on"
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9
	) ON CONFLICT ON CONSTRAINT filings_pkey DO UPDATE SET
		report_type = EXCLUDED.report_type,
		fiscal_year = EXCLUDED.fiscal_year,
		quarter = EXCLUDED.quarter,
		submission_date = EXCLUDED.submission_date,
		processed = EXCLUDED.processed,
		processing_error = EXCLUDED.processing_error`

	_, err = tx.Exec(ctx, sql, filing.DocumentID, filing.Ticker, filing.ReportType,
		filing.FiscalYear, filing.Quarter, filing.SubmissionDate, filing.Processed,
		filing.ProcessingError, filing.CreatedOn)
	if err != nil {
		log.Error().Err(err).Str("SQL", sql).Str("DocumentID", filing.DocumentID).Msg("save filing to DB failed")
		return err
	}

	return nil
}

// MarkProcessed flips the processed flag and clears any processing error.
func (filing *Filing) MarkProcessed(ctx context.Context, dbConn *pgxpool.Conn) error {
	filing.Processed = true
	filing.ProcessingError = ""

	_, err := dbConn.Exec(ctx, `UPDATE filings SET processed='t', processing_error='' WHERE document_id=$1`,
		filing.DocumentID)
	return err
}

// MarkFailed records the failure reason; the filing stays unprocessed so the
// next run retries it.
func (filing *Filing) MarkFailed(ctx context.Context, dbConn *pgxpool.Conn, reason string) error {
	filing.Processed = false
	filing.ProcessingError = reason

	_, err := dbConn.Exec(ctx, `UPDATE filings SET processed='f', processing_error=$1 WHERE document_id=$2`,
		reason, filing.DocumentID)
	return err
}
