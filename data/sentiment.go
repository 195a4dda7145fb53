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

type ConfidenceLevel string

const (
	ConfidenceVeryHigh ConfidenceLevel = "very_high"
	ConfidenceHigh     ConfidenceLevel = "high"
	ConfidenceModerate ConfidenceLevel = "moderate"
	ConfidenceLow      ConfidenceLevel = "low"
	ConfidenceVeryLow  ConfidenceLevel = "very_low"
)

type RiskSeverity string

const (
	RiskCritical RiskSeverity = "critical"
	RiskHigh     RiskSeverity = "high"
	RiskMedium   RiskSeverity = "medium"
	RiskLow      RiskSeverity = "low"
)

// SentimentArtifact captures the keyword-weighted tone of one filing's
// narrative sections. SentimentScore is bounded to [-100, 100].
type SentimentArtifact struct {
	DocumentID          string              `db:"document_id" json:"document_id"`
	PositiveExpressions int                 `db:"positive_expressions" json:"positive_expressions"`
	NegativeExpressions int                 `db:"negative_expressions" json:"negative_expressions"`
	ConfidenceKeywords  int                 `db:"confidence_keywords" json:"confidence_keywords"`
	UncertaintyKeywords int                 `db:"uncertainty_keywords" json:"uncertainty_keywords"`
	RiskMentions        int                 `db:"risk_mentions" json:"risk_mentions"`
	SentimentScore      float64             `db:"sentiment_score" json:"sentiment_score"`
	Confidence          ConfidenceLevel     `db:"confidence_level" json:"confidence_level"`
	Risk                RiskSeverity        `db:"risk_severity" json:"risk_severity"`
	SentimentChange     *float64            `db:"sentiment_change" json:"sentiment_change,omitempty"`
	Keywords            map[string][]string `db:"keywords" json:"keywords"`
	Summary             string              `db:"summary" json:"summary"`
}

// ConfidenceDescription returns the investor-facing wording of the
// confidence level.
func (artifact *SentimentArtifact) ConfidenceDescription() string {
	switch artifact.Confidence {
	case ConfidenceVeryHigh:
		return "経営陣は業績見通しに非常に強い自信を示しています"
	case ConfidenceHigh:
		return "経営陣は業績見通しに自信を示しています"
	case ConfidenceModerate:
		return "経営陣の業績見通しは中立的です"
	case ConfidenceLow:
		return "経営陣は業績見通しに慎重な姿勢を示しています"
	default:
		return "経営陣は業績見通しに強い不安を示しています"
	}
}

func SentimentForDocument(ctx context.Context, dbConn *pgxpool.Conn, documentID string) (*SentimentArtifact, error) {
	artifact := &SentimentArtifact{}

	rows, err := dbConn.Query(ctx, `SELECT document_id, positive_expressions, negative_expressions,
		confidence_keywords, uncertainty_keywords, risk_mentions, sentiment_score, confidence_level,
		risk_severity, sentiment_change, keywords, coalesce(summary, '') as summary
		FROM sentiment_artifacts WHERE document_id=$1 LIMIT 1`, documentID)
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

func (artifact *SentimentArtifact) SaveDB(ctx context.Context, dbConn *pgxpool.Conn) error {
	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err := tx.Commit(ctx); err != nil {
			log.Error().Err(err).Msg("error committing sentiment transaction to database")
		}
	}()

	sql := `INSERT INTO sentiment_artifacts (
		"document_id",
		"positive_expressions",
		"negative_expressions",
		"confidence_keywords",
		"uncertainty_keywords",
		"risk_mentions",
		"sentiment_score",
		"confidence_level",
		"risk_severity",
		"sentiment_change",
		"keywords",
		"summary"
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
	) ON CONFLICT ON CONSTRAINT sentiment_artifacts_pkey DO UPDATE SET
		positive_expressions = EXCLUDED.positive_expressions,
		negative_expressions = EXCLUDED.negative_expressions,
		confidence_keywords = EXCLUDED.confidence_keywords,
		uncertainty_keywords = EXCLUDED.uncertainty_keywords,
		risk_mentions = EXCLUDED.risk_mentions,
		sentiment_score = EXCLUDED.sentiment_score,
		confidence_level = EXCLUDED.confidence_level,
		risk_severity = EXCLUDED.risk_severity,
		sentiment_change = EXCLUDED.sentiment_change,
		keywords = EXCLUDED.keywords,
		summary = EXCLUDED.summary`

	_, err = tx.Exec(ctx, sql, artifact.DocumentID, artifact.PositiveExpressions,
		artifact.NegativeExpressions, artifact.ConfidenceKeywords, artifact.UncertaintyKeywords,
		artifact.RiskMentions, artifact.SentimentScore, artifact.Confidence, artifact.Risk,
		artifact.SentimentChange, artifact.Keywords, artifact.Summary)
	if err != nil {
		log.Error().Err(err).Str("SQL", sql).Str("DocumentID", artifact.DocumentID).Msg("save sentiment artifact to DB failed")
		return err
	}

	return nil
}
