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
	"math"
	"sort"
	"strings"

	"github.com/tokyoquant/edinetdata/data"
	"github.com/tokyoquant/edinetdata/extract"
)

const (
	contextRadius       = 30
	contextsPerKeyword  = 3
	contextsPerCategory = 10
)

// SentimentAnalyzer counts keyword occurrences over filing text. It is
// deterministic and side-effect free; the keyword lists are frozen at
// construction.
type SentimentAnalyzer struct {
	keywords Keywords
}

func NewSentimentAnalyzer(keywords Keywords) *SentimentAnalyzer {
	return &SentimentAnalyzer{keywords: keywords}
}

// Analyze scores the given sections. Text inside the extractor's important
// sentinels is counted twice so that management-discussion sections weigh
// more than boilerplate.
func (analyzer *SentimentAnalyzer) Analyze(sections map[string]string) *data.SentimentArtifact {
	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, sections[name])
	}
	fullText := strings.Join(parts, "\n")

	important := strings.Join(extract.ImportantSections(fullText), "\n")

	artifact := &data.SentimentArtifact{
		Keywords: map[string][]string{},
	}

	artifact.PositiveExpressions = analyzer.countCategory(fullText, important, analyzer.keywords.Positive, artifact.Keywords)
	artifact.NegativeExpressions = analyzer.countCategory(fullText, important, analyzer.keywords.Negative, artifact.Keywords)
	artifact.ConfidenceKeywords = analyzer.countCategory(fullText, important, analyzer.keywords.Confidence, artifact.Keywords)
	artifact.UncertaintyKeywords = analyzer.countCategory(fullText, important, analyzer.keywords.Uncertainty, artifact.Keywords)
	artifact.RiskMentions = analyzer.countCategory(fullText, important, analyzer.keywords.Risk, artifact.Keywords)

	positive := artifact.PositiveExpressions
	negative := artifact.NegativeExpressions

	score := float64(positive-negative) / math.Max(1, float64(positive+negative)) * 100
	artifact.SentimentScore = math.Round(score*100) / 100

	artifact.Confidence = confidenceLevel(artifact)
	artifact.Risk = riskSeverity(artifact.RiskMentions, len([]rune(fullText)))
	artifact.Summary = sentimentSummary(artifact)

	return artifact
}

// countCategory counts case-insensitive substring occurrences in the full
// text plus a second pass over important sections (weight 2) and records
// context windows for matched keywords
func (analyzer *SentimentAnalyzer) countCategory(fullText string, important string, keywords []string, contexts map[string][]string) int {
	lowerFull := strings.ToLower(fullText)
	lowerImportant := strings.ToLower(important)

	total := 0
	categoryContexts := 0

	for _, keyword := range keywords {
		lowerKeyword := strings.ToLower(keyword)

		count := strings.Count(lowerFull, lowerKeyword)
		if count == 0 {
			continue
		}

		total += count + strings.Count(lowerImportant, lowerKeyword)

		for _, window := range contextWindows(fullText, keyword) {
			if categoryContexts >= contextsPerCategory {
				break
			}

			contexts[keyword] = append(contexts[keyword], window)
			categoryContexts++
		}
	}

	return total
}

// contextWindows returns up to three ±30-rune windows around occurrences of
// the keyword
func contextWindows(text string, keyword string) []string {
	runes := []rune(text)
	keywordRunes := []rune(keyword)

	windows := []string{}
	offset := 0

	for len(windows) < contextsPerKeyword {
		idx := strings.Index(strings.ToLower(string(runes[offset:])), strings.ToLower(keyword))
		if idx < 0 {
			break
		}

		at := offset + len([]rune(string(runes[offset:])[:idx]))
		start := at - contextRadius
		if start < 0 {
			start = 0
		}

		end := at + len(keywordRunes) + contextRadius
		if end > len(runes) {
			end = len(runes)
		}

		windows = append(windows, string(runes[start:end]))
		offset = at + len(keywordRunes)
	}

	return windows
}

// confidenceLevel combines the confidence-keyword ratio (weight 0.6) with
// the positive-expression ratio (weight 0.4). Filings with no tone signal at
// all read as moderate rather than very_low.
func confidenceLevel(artifact *data.SentimentArtifact) data.ConfidenceLevel {
	totalSignal := artifact.PositiveExpressions + artifact.NegativeExpressions +
		artifact.ConfidenceKeywords + artifact.UncertaintyKeywords
	if totalSignal == 0 {
		return data.ConfidenceModerate
	}

	confRatio := float64(artifact.ConfidenceKeywords) /
		math.Max(1, float64(artifact.ConfidenceKeywords+artifact.UncertaintyKeywords))
	posRatio := float64(artifact.PositiveExpressions) /
		math.Max(1, float64(artifact.PositiveExpressions+artifact.NegativeExpressions))

	combined := confRatio*0.6 + posRatio*0.4

	switch {
	case combined >= 0.8:
		return data.ConfidenceVeryHigh
	case combined >= 0.6:
		return data.ConfidenceHigh
	case combined >= 0.4:
		return data.ConfidenceModerate
	case combined >= 0.2:
		return data.ConfidenceLow
	}

	return data.ConfidenceVeryLow
}

// riskSeverity buckets by density of risk mentions per 1,000 characters and
// by the raw count
func riskSeverity(riskMentions int, textRunes int) data.RiskSeverity {
	density := float64(riskMentions) / math.Max(1, float64(textRunes)) * 1000

	switch {
	case density >= 5 || riskMentions >= 20:
		return data.RiskCritical
	case density >= 3 || riskMentions >= 10:
		return data.RiskHigh
	case density >= 1 || riskMentions >= 5:
		return data.RiskMedium
	}

	return data.RiskLow
}

func sentimentSummary(artifact *data.SentimentArtifact) string {
	var tone string
	switch {
	case artifact.SentimentScore >= 50:
		tone = "業績に関する記述は前向きです"
	case artifact.SentimentScore >= 0:
		tone = "業績に関する記述は中立的です"
	default:
		tone = "業績に関する記述は慎重です"
	}

	var confidence string
	switch artifact.Confidence {
	case data.ConfidenceVeryHigh, data.ConfidenceHigh:
		confidence = "経営陣の見通しには自信がうかがえます"
	case data.ConfidenceModerate:
		confidence = "経営陣の見通しは中立的です"
	default:
		confidence = "経営陣の見通しは慎重です"
	}

	var risk string
	switch {
	case artifact.RiskMentions >= 10:
		risk = "リスクへの言及が多く注意が必要です"
	case artifact.RiskMentions >= 1:
		risk = "一定のリスク要因が言及されています"
	default:
		risk = "特筆すべきリスクの言及はありません"
	}

	return tone + "。" + confidence + "。" + risk + "。"
}
