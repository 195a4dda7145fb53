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
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MarketIssue is one marginable issue listed in the weekly JPX report.
type MarketIssue struct {
	Ticker string `db:"ticker" json:"ticker"`
	Name   string `db:"name" json:"name"`
}

// MarginSnapshot is the weekly end-of-period outstanding margin position of
// one issue. Unique on (ticker, report_date).
type MarginSnapshot struct {
	Ticker           string    `db:"ticker" json:"ticker"`
	ReportDate       time.Time `db:"report_date" json:"report_date"`
	SellOutstanding  int64     `db:"sell_outstanding" json:"sell_outstanding"`
	BuyOutstanding   int64     `db:"buy_outstanding" json:"buy_outstanding"`
	SellDelta        int64     `db:"sell_delta" json:"sell_delta"`
	BuyDelta         int64     `db:"buy_delta" json:"buy_delta"`
	NegotiableSell   int64     `db:"negotiable_sell" json:"negotiable_sell"`
	NegotiableBuy    int64     `db:"negotiable_buy" json:"negotiable_buy"`
	StandardizedSell int64     `db:"standardized_sell" json:"standardized_sell"`
	StandardizedBuy  int64     `db:"standardized_buy" json:"standardized_buy"`
}

func (snapshot *MarginSnapshot) MarshalZerologObject(e *zerolog.Event) {
	e.Str("Ticker", snapshot.Ticker)
	e.Time("ReportDate", snapshot.ReportDate)
	e.Int64("SellOutstanding", snapshot.SellOutstanding)
	e.Int64("BuyOutstanding", snapshot.BuyOutstanding)
}

func (issue *MarketIssue) SaveDB(ctx context.Context, dbConn *pgxpool.Conn) error {
	sql := `INSERT INTO market_issues ("ticker", "name") VALUES ($1, $2)
		ON CONFLICT ON CONSTRAINT market_issues_pkey DO UPDATE SET name = EXCLUDED.name`

	_, err := dbConn.Exec(ctx, sql, issue.Ticker, issue.Name)
	if err != nil {
		log.Error().Err(err).Str("Ticker", issue.Ticker).Msg("save market issue to DB failed")
	}

	return err
}

// SaveMarginSnapshots upserts a batch of snapshots inside one transaction.
// Re-running the same batch replaces rows rather than duplicating them.
func SaveMarginSnapshots(ctx context.Context, dbConn *pgxpool.Conn, snapshots []*MarginSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err := tx.Commit(ctx); err != nil {
			log.Error().Err(err).Msg("error committing margin snapshot transaction to database")
		}
	}()

	sql := `INSERT INTO margin_snapshots (
		"ticker",
		"report_date",
		"sell_outstanding",
		"buy_outstanding",
		"sell_delta",
		"buy_delta",
		"negotiable_sell",
		"negotiable_buy",
		"standardized_sell",
		"standardized_buy"
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
	) ON CONFLICT ON CONSTRAINT margin_snapshots_pkey DO UPDATE SET
		sell_outstanding = EXCLUDED.sell_outstanding,
		buy_outstanding = EXCLUDED.buy_outstanding,
		sell_delta = EXCLUDED.sell_delta,
		buy_delta = EXCLUDED.buy_delta,
		negotiable_sell = EXCLUDED.negotiable_sell,
		negotiable_buy = EXCLUDED.negotiable_buy,
		standardized_sell = EXCLUDED.standardized_sell,
		standardized_buy = EXCLUDED.standardized_buy`

	for _, snapshot := range snapshots {
		_, err = tx.Exec(ctx, sql, snapshot.Ticker, snapshot.ReportDate,
			snapshot.SellOutstanding, snapshot.BuyOutstanding, snapshot.SellDelta,
			snapshot.BuyDelta, snapshot.NegotiableSell, snapshot.NegotiableBuy,
			snapshot.StandardizedSell, snapshot.StandardizedBuy)
		if err != nil {
			log.Error().Err(err).Str("Ticker", snapshot.Ticker).Msg("save margin snapshot to DB failed")
			return err
		}
	}

	return nil
}

// MarginSnapshotCount returns the number of snapshots persisted for a report
// date. Used to verify idempotence after coordinated runs.
func MarginSnapshotCount(ctx context.Context, dbConn *pgxpool.Conn, reportDate time.Time) (int, error) {
	count := 0
	err := dbConn.QueryRow(ctx, `SELECT count(*) FROM margin_snapshots WHERE report_date=$1`, reportDate).Scan(&count)
	return count, err
}
