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

type InvestmentGrade string

const (
	GradeAPlus InvestmentGrade = "A+"
	GradeA     InvestmentGrade = "A"
	GradeBPlus InvestmentGrade = "B+"
	GradeB     InvestmentGrade = "B"
	GradeC     InvestmentGrade = "C"
	GradeD     InvestmentGrade = "D"
)

// GradeOrdinal returns the rank of a grade, A+ being 0. Unknown grades map
// below D.
func GradeOrdinal(grade InvestmentGrade) int {
	switch grade {
	case GradeAPlus:
		return 0
	case GradeA:
		return 1
	case GradeBPlus:
		return 2
	case GradeB:
		return 3
	case GradeC:
		return 4
	case GradeD:
		return 5
	default:
		return 6
	}
}

// GradeForScore maps an overall score onto the grade rubric.
func GradeForScore(score int) InvestmentGrade {
	switch {
	case score >= 85:
		return GradeAPlus
	case score >= 75:
		return GradeA
	case score >= 65:
		return GradeBPlus
	case score >= 50:
		return GradeB
	case score >= 35:
		return GradeC
	default:
		return GradeD
	}
}

// AnalysisStatus describes how the expert call concluded. Retryable failures
// (rate limits, transient API errors) may be re-queued by batch tooling.
type AnalysisStatus struct {
	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	IsRetryable  bool   `json:"is_retryable,omitempty"`
}

// ScoreFactor is one enumerated positive or negative factor contributing to
// the overall score.
type ScoreFactor struct {
	Factor string `json:"factor"`
	Impact int    `json:"impact"`
}

// ScoreBreakdown is the model-supplied derivation of the overall score.
type ScoreBreakdown struct {
	BaseScore       int           `json:"base_score"`
	PositiveFactors []ScoreFactor `json:"positive_factors"`
	NegativeFactors []ScoreFactor `json:"negative_factors"`
}

// Computed returns base + sum of positive impacts + sum of negative impacts.
func (breakdown *ScoreBreakdown) Computed() int {
	total := breakdown.BaseScore
	for _, factor := range breakdown.PositiveFactors {
		total += factor.Impact
	}

	for _, factor := range breakdown.NegativeFactors {
		total += factor.Impact
	}

	return total
}

// AIExpertArtifact is the structured expert commentary synthesized from one
// LLM call, or the deterministic fallback when the call failed.
type AIExpertArtifact struct {
	DocumentID       string          `db:"document_id" json:"document_id"`
	OverallScore     int             `db:"overall_score" json:"overall_score"`
	Grade            InvestmentGrade `db:"investment_grade" json:"investment_grade"`
	FacetScores      map[string]int  `db:"facet_scores" json:"facet_scores"`
	InvestmentPoints []string        `db:"investment_points" json:"investment_points"`
	RiskAnalysis     string          `db:"risk_analysis" json:"risk_analysis"`
	Outlook          string          `db:"outlook" json:"outlook"`
	Confidence       float64         `db:"confidence" json:"confidence"`
	Breakdown        *ScoreBreakdown `db:"score_breakdown" json:"score_breakdown,omitempty"`
	ScoreCorrected   bool            `db:"score_corrected" json:"score_calculation_corrected,omitempty"`
	GradeAdjusted    bool            `db:"grade_adjusted" json:"grade_adjusted,omitempty"`
	Status           AnalysisStatus  `db:"status" json:"ai_analysis_status"`
}

func AIExpertForDocument(ctx context.Context, dbConn *pgxpool.Conn, documentID string) (*AIExpertArtifact, error) {
	artifact := &AIExpertArtifact{}

	rows, err := dbConn.Query(ctx, `SELECT document_id, overall_score, investment_grade, facet_scores,
		investment_points, coalesce(risk_analysis, '') as risk_analysis, coalesce(outlook, '') as outlook,
		confidence, score_breakdown, score_corrected, grade_adjusted, status
		FROM ai_expert_artifacts WHERE document_id=$1 LIMIT 1`, documentID)
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

func (artifact *AIExpertArtifact) SaveDB(ctx context.Context, dbConn *pgxpool.Conn) error {
	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err := tx.Commit(ctx); err != nil {
			log.Error().Err(err).Msg("error committing AI expert transaction to database")
		}
	}()

	sql := `INSERT INTO ai_expert_artifacts (
		"document_id",
		"overall_score",
		"investment_grade",
		"facet_scores",
		"investment_points",
		"risk_analysis",
		"outlook",
		"confidence",
		"score_breakdown",
		"score_corrected",
		"grade_adjusted",
		"status"
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
	) ON CONFLICT ON CONSTRAINT ai_expert_artifacts_pkey DO UPDATE SET
		overall_score = EXCLUDED.overall_score,
		investment_grade = EXCLUDED.investment_grade,
		facet_scores = EXCLUDED.facet_scores,
		investment_points = EXCLUDED.investment_points,
		risk_analysis = EXCLUDED.risk_analysis,
		outlook = EXCLUDED.outlook,
		confidence = EXCLUDED.confidence,
		score_breakdown = EXCLUDED.score_breakdown,
		score_corrected = EXCLUDED.score_corrected,
		grade_adjusted = EXCLUDED.grade_adjusted,
		status = EXCLUDED.status`

	_, err = tx.Exec(ctx, sql, artifact.DocumentID, artifact.OverallScore, artifact.Grade,
		artifact.FacetScores, artifact.InvestmentPoints, artifact.RiskAnalysis, artifact.Outlook,
		artifact.Confidence, artifact.Breakdown, artifact.ScoreCorrected, artifact.GradeAdjusted,
		artifact.Status)
	if err != nil {
		log.Error().Err(err).Str("SQL", sql).Str("DocumentID", artifact.DocumentID).Msg("save AI expert artifact to DB failed")
		return err
	}

	return nil
}
