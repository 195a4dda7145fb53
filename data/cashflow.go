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

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type CashFlowPattern string

const (
	PatternIdeal         CashFlowPattern = "ideal"
	PatternGrowth        CashFlowPattern = "growth"
	PatternDanger        CashFlowPattern = "danger"
	PatternRecovery      CashFlowPattern = "recovery"
	PatternRestructuring CashFlowPattern = "restructuring"
	PatternUnknown       CashFlowPattern = "unknown"
)

type HealthScore string

const (
	HealthExcellent HealthScore = "excellent"
	HealthGood      HealthScore = "good"
	HealthFair      HealthScore = "fair"
	HealthPoor      HealthScore = "poor"
	HealthCritical  HealthScore = "critical"
)

// CashFlowArtifact holds the cash-flow figures extracted from one filing.
// Amounts are in units of 百万円 (millions of yen). A nil amount means the
// figure was not found in the filing text.
type CashFlowArtifact struct {
	DocumentID  string          `db:"document_id" json:"document_id"`
	OperatingCF *int64          `db:"operating_cf" json:"operating_cf"`
	InvestingCF *int64          `db:"investing_cf" json:"investing_cf"`
	FinancingCF *int64          `db:"financing_cf" json:"financing_cf"`
	FreeCF      *int64          `db:"free_cf" json:"free_cf"`
	Pattern     CashFlowPattern `db:"cf_pattern" json:"cf_pattern"`
	Health      HealthScore     `db:"health_score" json:"health_score"`
	ChangeRate  *float64        `db:"change_rate" json:"change_rate,omitempty"`
	Summary     string          `db:"summary" json:"summary"`
	RiskFactors string          `db:"risk_factors" json:"risk_factors"`
}

// PatternDescription returns the investor-facing description of a pattern.
func (artifact *CashFlowArtifact) PatternDescription() string {
	switch artifact.Pattern {
	case PatternIdeal:
		return "本業で稼ぎ、投資を行い、借入を返済する理想的な状態"
	case PatternGrowth:
		return "本業で稼ぎつつ、資金調達により積極投資を行う成長段階"
	case PatternRecovery:
		return "資産売却と本業収益で借入を返済する回復段階"
	case PatternRestructuring:
		return "本業が不振で、資産売却により借入を返済する再建段階"
	case PatternDanger:
		return "本業が不振で、資産売却と借入に依存する危険な状態"
	default:
		return "キャッシュ・フローのパターンを判定できませんでした"
	}
}

func CashFlowForDocument(ctx context.Context, dbConn *pgxpool.Conn, documentID string) (*CashFlowArtifact, error) {
	artifact := &CashFlowArtifact{}

	rows, err := dbConn.Query(ctx, `SELECT document_id, operating_cf, investing_cf, financing_cf,
		free_cf, cf_pattern, health_score, change_rate, coalesce(summary, '') as summary,
		coalesce(risk_factors, '') as risk_factors
		FROM cash_flow_artifacts WHERE document_id=$1 LIMIT 1`, documentID)
	if err != nil {
		return nil, err
	}

	if err := pgxscan.ScanOne(artifact, rows); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return artifact, nil
}

func (artifact *CashFlowArtifact) SaveDB(ctx context.Context, dbConn *pgxpool.Conn) error {
	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err := tx.Commit(ctx); err != nil {
			log.Error().Err(err).Msg("error committing cash flow transaction to database")
		}
	}()

	sql := `INSERT INTO cash_flow_artifacts (
		"document_id",
		"operating_cf",
		"investing_cf",
		"financing_cf",
		"free_cf",
		"cf_pattern",
		"health_score",
		"change_rate",
		"summary",
		"risk_factors"
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
	) ON CONFLICT ON CONSTRAINT cash_flow_artifacts_pkey DO UPDATE SET
		operating_cf = EXCLUDED.operating_cf,
		investing_cf = EXCLUDED.investing_cf,
		financing_cf = EXCLUDED.financing_cf,
		free_cf = EXCLUDED.free_cf,
		cf_pattern = EXCLUDED.cf_pattern,
		health_score = EXCLUDED.health_score,
		change_rate = EXCLUDED.change_rate,
		summary = EXCLUDED.summary,
		risk_factors = EXCLUDED.risk_factors`

	_, err = tx.Exec(ctx, sql, artifact.DocumentID, artifact.OperatingCF, artifact.InvestingCF,
		artifact.FinancingCF, artifact.FreeCF, artifact.Pattern, artifact.Health,
		artifact.ChangeRate, artifact.Summary, artifact.RiskFactors)
	if err != nil {
		log.Error().Err(err).Str("SQL", sql).Str("DocumentID", artifact.DocumentID).Msg("save cash flow artifact to DB failed")
		return err
	}

	return nil
}
