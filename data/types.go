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

import "time"

// CompanyBlock is the company portion of a formatted analysis result.
type CompanyBlock struct {
	Ticker     string `json:"ticker"`
	Name       string `json:"name"`
	EdinetCode string `json:"edinet_code"`
}

// FilingBlock is the filing portion of a formatted analysis result.
type FilingBlock struct {
	DocumentID     string    `json:"document_id"`
	ReportType     string    `json:"report_type"`
	FiscalYear     string    `json:"fiscal_year"`
	Quarter        string    `json:"quarter"`
	SubmissionDate time.Time `json:"submission_date"`
}

// CashFlowBlock is the cash-flow portion of a formatted analysis result,
// including the human description of the pattern.
type CashFlowBlock struct {
	OperatingCF        *int64   `json:"operating_cf"`
	InvestingCF        *int64   `json:"investing_cf"`
	FinancingCF        *int64   `json:"financing_cf"`
	FreeCF             *int64   `json:"free_cf"`
	Pattern            string   `json:"cf_pattern"`
	PatternDescription string   `json:"pattern_description"`
	Health             string   `json:"health_score"`
	ChangeRate         *float64 `json:"change_rate,omitempty"`
	Summary            string   `json:"summary"`
}

// SentimentBlock is the sentiment portion of a formatted analysis result.
type SentimentBlock struct {
	PositiveExpressions   int      `json:"positive_expressions"`
	NegativeExpressions   int      `json:"negative_expressions"`
	SentimentScore        float64  `json:"sentiment_score"`
	Confidence            string   `json:"confidence_level"`
	ConfidenceDescription string   `json:"confidence_description"`
	Risk                  string   `json:"risk_severity"`
	SentimentChange       *float64 `json:"sentiment_change,omitempty"`
	Summary               string   `json:"summary"`
}

// ExpertBlock is the optional AI expert portion of a formatted analysis
// result.
type ExpertBlock struct {
	OverallScore     int            `json:"overall_score"`
	Grade            string         `json:"investment_grade"`
	FacetScores      map[string]int `json:"facet_scores,omitempty"`
	InvestmentPoints []string       `json:"investment_points"`
	RiskAnalysis     string         `json:"risk_analysis,omitempty"`
	Outlook          string         `json:"outlook,omitempty"`
	Confidence       float64        `json:"confidence"`
	Status           AnalysisStatus `json:"ai_analysis_status"`
}

// AnalysisResult is the orchestrator's formatted output. Failures are
// reported in-band: Success is false and Error carries the message. The
// processing time is always populated, including on failure.
type AnalysisResult struct {
	Success        bool            `json:"success"`
	Error          string          `json:"error,omitempty"`
	Company        *CompanyBlock   `json:"company,omitempty"`
	Filing         *FilingBlock    `json:"filing,omitempty"`
	CashFlow       *CashFlowBlock  `json:"cash_flow,omitempty"`
	Sentiment      *SentimentBlock `json:"sentiment,omitempty"`
	Expert         *ExpertBlock    `json:"ai_expert,omitempty"`
	FromCache      bool            `json:"from_cache,omitempty"`
	ProcessingTime float64         `json:"processing_time_seconds"`
}
