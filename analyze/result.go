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
package analyze

import (
	"time"

	json "github.com/goccy/go-json"
	"github.com/tokyoquant/edinetdata/data"
)

// assembleResult builds the formatted result blocks from persisted artifacts
func assembleResult(company *data.Company, filing *data.Filing, cashFlow *data.CashFlowArtifact,
	sentimentArtifact *data.SentimentArtifact, expertArtifact *data.AIExpertArtifact,
	elapsed time.Duration) *data.AnalysisResult {
	result := &data.AnalysisResult{
		Success: true,
		Company: &data.CompanyBlock{
			Ticker:     company.Ticker,
			Name:       company.Name,
			EdinetCode: company.EdinetCode,
		},
		Filing: &data.FilingBlock{
			DocumentID:     filing.DocumentID,
			ReportType:     string(filing.ReportType),
			FiscalYear:     filing.FiscalYear,
			Quarter:        filing.Quarter,
			SubmissionDate: filing.SubmissionDate,
		},
		CashFlow: &data.CashFlowBlock{
			OperatingCF:        cashFlow.OperatingCF,
			InvestingCF:        cashFlow.InvestingCF,
			FinancingCF:        cashFlow.FinancingCF,
			FreeCF:             cashFlow.FreeCF,
			Pattern:            string(cashFlow.Pattern),
			PatternDescription: cashFlow.PatternDescription(),
			Health:             string(cashFlow.Health),
			ChangeRate:         cashFlow.ChangeRate,
			Summary:            cashFlow.Summary,
		},
		Sentiment: &data.SentimentBlock{
			PositiveExpressions:   sentimentArtifact.PositiveExpressions,
			NegativeExpressions:   sentimentArtifact.NegativeExpressions,
			SentimentScore:        sentimentArtifact.SentimentScore,
			Confidence:            string(sentimentArtifact.Confidence),
			ConfidenceDescription: sentimentArtifact.ConfidenceDescription(),
			Risk:                  string(sentimentArtifact.Risk),
			SentimentChange:       sentimentArtifact.SentimentChange,
			Summary:               sentimentArtifact.Summary,
		},
		ProcessingTime: elapsed.Seconds(),
	}

	if expertArtifact != nil {
		result.Expert = &data.ExpertBlock{
			OverallScore:     expertArtifact.OverallScore,
			Grade:            string(expertArtifact.Grade),
			FacetScores:      expertArtifact.FacetScores,
			InvestmentPoints: expertArtifact.InvestmentPoints,
			RiskAnalysis:     expertArtifact.RiskAnalysis,
			Outlook:          expertArtifact.Outlook,
			Confidence:       expertArtifact.Confidence,
			Status:           expertArtifact.Status,
		}
	}

	return result
}

// FormatResult renders a result as indented JSON for the CLI
func FormatResult(result *data.AnalysisResult) (string, error) {
	body, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}

	return string(body), nil
}
