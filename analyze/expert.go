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
	"context"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/tokyoquant/edinetdata/data"
	"google.golang.org/genai"
)

const (
	// promptTextLimit bounds how much filing text is sent per call
	promptTextLimit = 30_000

	// fallback values returned when the expert call fails
	fallbackScore      = 55
	fallbackConfidence = 0.3

	baseScore = 55
)

// Error types recorded in the analysis status
const (
	ErrorTypeRateLimit      = "rate_limit"
	ErrorTypeAPIError       = "api_error"
	ErrorTypeEmptyText      = "empty_text"
	ErrorTypeBlocked        = "blocked"
	ErrorTypeNotInitialized = "model_not_initialized"
)

// DefaultRateLimitPhrases are the response fragments that classify a failed
// generation as quota exhaustion. The backend's error surface is not fully
// typed, so operators can extend this list through configuration.
func DefaultRateLimitPhrases() []string {
	return []string{
		"rate limit",
		"too many requests",
		"429",
		"quota exceeded",
		"resource exhausted",
		"requests per minute",
		"requests per day",
		"daily limit",
		"minute limit",
	}
}

// generateFunc issues one generation call and returns the response text
type generateFunc func(ctx context.Context, prompt string) (string, error)

// ExpertAnalyzer synthesizes a single LLM call into structured commentary.
// Failures never propagate; callers always receive an artifact, falling back
// to deterministic defaults with error metadata when the call cannot
// complete.
type ExpertAnalyzer struct {
	generate         generateFunc
	rateLimitPhrases []string
	slots            chan struct{}
}

// NewExpertAnalyzer builds an analyzer backed by the Gemini API. An empty
// API key returns a nil analyzer; the orchestrator skips the expert stage.
func NewExpertAnalyzer(ctx context.Context, apiKey string, model string, maxConcurrent int, rateLimitPhrases []string) (*ExpertAnalyzer, error) {
	if apiKey == "" {
		return nil, nil
	}

	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create genai client: %w", err)
	}

	generate := func(ctx context.Context, prompt string) (string, error) {
		config := &genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0.2)),
			ResponseMIMEType: "application/json",
		}

		result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
		if err != nil {
			return "", err
		}

		return result.Text(), nil
	}

	return newExpertAnalyzer(generate, maxConcurrent, rateLimitPhrases), nil
}

func newExpertAnalyzer(generate generateFunc, maxConcurrent int, rateLimitPhrases []string) *ExpertAnalyzer {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}

	if rateLimitPhrases == nil {
		rateLimitPhrases = DefaultRateLimitPhrases()
	}

	return &ExpertAnalyzer{
		generate:         generate,
		rateLimitPhrases: rateLimitPhrases,
		slots:            make(chan struct{}, maxConcurrent),
	}
}

// expertResponse is the JSON grammar the model is instructed to produce
type expertResponse struct {
	OverallScore     int                  `json:"overall_score"`
	InvestmentGrade  string               `json:"investment_grade"`
	FacetScores      map[string]int       `json:"facet_scores"`
	InvestmentPoints []string             `json:"investment_points"`
	RiskAnalysis     string               `json:"risk_analysis"`
	Outlook          string               `json:"outlook"`
	Confidence       float64              `json:"confidence"`
	ScoreBreakdown   *data.ScoreBreakdown `json:"score_breakdown"`
}

// Analyze issues one generation call over the filing text and validates the
// response against the scoring rubric
func (analyzer *ExpertAnalyzer) Analyze(ctx context.Context, text string, filing *data.Filing, sentiment *data.SentimentArtifact) *data.AIExpertArtifact {
	logger := zerolog.Ctx(ctx)

	// refuse rather than queue once the concurrency ceiling is reached
	select {
	case analyzer.slots <- struct{}{}:
		defer func() { <-analyzer.slots }()
	default:
		logger.Warn().Str("DocumentID", filing.DocumentID).Msg("expert analyzer concurrency ceiling reached")
		return fallbackArtifact(filing, ErrorTypeRateLimit, "expert analyzer concurrency ceiling reached", true)
	}

	prompt := buildExpertPrompt(text, filing, sentiment)

	response, err := analyzer.generate(ctx, prompt)
	if err != nil {
		errorType := ErrorTypeAPIError
		if analyzer.isRateLimited(err.Error()) {
			errorType = ErrorTypeRateLimit
		}

		logger.Error().Err(err).Str("Component", "ExpertAnalyzer").Str("Kind", errorType).
			Str("DocumentID", filing.DocumentID).Msg("expert generation call failed")
		return fallbackArtifact(filing, errorType, err.Error(), true)
	}

	if strings.TrimSpace(response) == "" {
		logger.Error().Str("Component", "ExpertAnalyzer").Str("Kind", ErrorTypeEmptyText).
			Str("DocumentID", filing.DocumentID).Msg("expert generation returned no text")
		return fallbackArtifact(filing, ErrorTypeEmptyText, "model returned empty response", true)
	}

	if analyzer.isRateLimited(response) {
		logger.Error().Str("Component", "ExpertAnalyzer").Str("Kind", ErrorTypeRateLimit).
			Str("DocumentID", filing.DocumentID).Msg("expert generation response indicates quota exhaustion")
		return fallbackArtifact(filing, ErrorTypeRateLimit, "response indicates quota exhaustion", true)
	}

	parsed, err := parseExpertResponse(response)
	if err != nil {
		logger.Error().Err(err).Str("Component", "ExpertAnalyzer").Str("Kind", ErrorTypeAPIError).
			Str("DocumentID", filing.DocumentID).Msg("could not parse expert response")
		return fallbackArtifact(filing, ErrorTypeAPIError, err.Error(), true)
	}

	artifact := &data.AIExpertArtifact{
		DocumentID:       filing.DocumentID,
		OverallScore:     parsed.OverallScore,
		Grade:            data.InvestmentGrade(parsed.InvestmentGrade),
		FacetScores:      parsed.FacetScores,
		InvestmentPoints: parsed.InvestmentPoints,
		RiskAnalysis:     parsed.RiskAnalysis,
		Outlook:          parsed.Outlook,
		Confidence:       parsed.Confidence,
		Breakdown:        parsed.ScoreBreakdown,
		Status:           data.AnalysisStatus{Success: true},
	}

	if artifact.InvestmentPoints == nil {
		artifact.InvestmentPoints = []string{}
	}

	validateScore(artifact)
	return artifact
}

func (analyzer *ExpertAnalyzer) isRateLimited(message string) bool {
	lower := strings.ToLower(message)
	for _, phrase := range analyzer.rateLimitPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}

	return false
}

// validateScore reconciles the model's overall score with its own breakdown
// and the grade rubric
func validateScore(artifact *data.AIExpertArtifact) {
	if artifact.Breakdown != nil {
		computed := artifact.Breakdown.Computed()
		diff := artifact.OverallScore - computed
		if diff < 0 {
			diff = -diff
		}

		if diff > 5 {
			if computed < 0 {
				computed = 0
			}
			if computed > 100 {
				computed = 100
			}

			artifact.OverallScore = computed
			artifact.ScoreCorrected = true
		}
	}

	expected := data.GradeForScore(artifact.OverallScore)
	distance := data.GradeOrdinal(artifact.Grade) - data.GradeOrdinal(expected)
	if distance < 0 {
		distance = -distance
	}

	if distance > 1 {
		artifact.Grade = expected
		artifact.GradeAdjusted = true
	}
}

// parseExpertResponse accepts a raw JSON object, a fenced block, the
// substring between the outermost braces, or whatever json-repair can
// salvage
func parseExpertResponse(response string) (*expertResponse, error) {
	candidates := []string{strings.TrimSpace(response)}

	if fenced := extractFencedBlock(response, "```json"); fenced != "" {
		candidates = append(candidates, fenced)
	}

	if fenced := extractFencedBlock(response, "```"); fenced != "" {
		candidates = append(candidates, fenced)
	}

	first := strings.Index(response, "{")
	last := strings.LastIndex(response, "}")
	if first >= 0 && last > first {
		candidates = append(candidates, response[first:last+1])
	}

	for _, candidate := range candidates {
		parsed := &expertResponse{}
		if err := json.Unmarshal([]byte(candidate), parsed); err == nil {
			return parsed, nil
		}
	}

	repaired, err := jsonrepair.RepairJSON(response)
	if err == nil {
		parsed := &expertResponse{}
		if err := json.Unmarshal([]byte(repaired), parsed); err == nil {
			return parsed, nil
		}
	}

	return nil, fmt.Errorf("response is not parseable as JSON")
}

func extractFencedBlock(response string, fence string) string {
	start := strings.Index(response, fence)
	if start < 0 {
		return ""
	}

	rest := response[start+len(fence):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return ""
	}

	return strings.TrimSpace(rest[:end])
}

func fallbackArtifact(filing *data.Filing, errorType string, message string, retryable bool) *data.AIExpertArtifact {
	if errorType == ErrorTypeBlocked || errorType == ErrorTypeNotInitialized {
		retryable = false
	}

	return &data.AIExpertArtifact{
		DocumentID:       filing.DocumentID,
		OverallScore:     fallbackScore,
		Grade:            data.GradeB,
		FacetScores:      map[string]int{},
		InvestmentPoints: []string{},
		Confidence:       fallbackConfidence,
		Status: data.AnalysisStatus{
			Success:      false,
			ErrorType:    errorType,
			ErrorMessage: message,
			IsRetryable:  retryable,
		},
	}
}

func buildExpertPrompt(text string, filing *data.Filing, sentiment *data.SentimentArtifact) string {
	runes := []rune(text)
	if len(runes) > promptTextLimit {
		runes = runes[:promptTextLimit]
	}

	builder := strings.Builder{}
	builder.WriteString("あなたは日本株を専門とする証券アナリストです。以下の決算書類を分析し、JSONで回答してください。\n\n")
	builder.WriteString(fmt.Sprintf("対象企業: %s / 会計年度: %s %s / 書類種別: %s\n",
		filing.Ticker, filing.FiscalYear, filing.Quarter, filing.ReportType))

	if sentiment != nil {
		// word-based sentiment converted to a 0-100 scale for the prompt
		normalized := (sentiment.SentimentScore + 100) / 2
		builder.WriteString(fmt.Sprintf("キーワード分析によるセンチメント: %.0f/100 (信頼度: %s)\n",
			normalized, sentiment.Confidence))
	}

	builder.WriteString(fmt.Sprintf(`
採点基準: 基礎点%dから、プラス要因・マイナス要因をそれぞれ±3〜±8点で加減算してください。
投資グレード: A+ (85以上), A (75以上), B+ (65以上), B (50以上), C (35以上), D (それ未満)

次のJSONスキーマで回答してください:
{
  "overall_score": <0-100の整数>,
  "investment_grade": "<A+|A|B+|B|C|D>",
  "facet_scores": {"収益性": <0-10>, "成長性": <0-10>, "財務健全性": <0-10>, "キャッシュフロー": <0-10>},
  "investment_points": ["<投資判断のポイント>"],
  "risk_analysis": "<リスク分析>",
  "outlook": "<今後の見通し>",
  "confidence": <0.0-1.0>,
  "score_breakdown": {
    "base_score": %d,
    "positive_factors": [{"factor": "<要因>", "impact": <整数>}],
    "negative_factors": [{"factor": "<要因>", "impact": <負の整数>}]
  }
}

決算書類本文:
`, baseScore, baseScore))
	builder.WriteString(string(runes))

	return builder.String()
}
