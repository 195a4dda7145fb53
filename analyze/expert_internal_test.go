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
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tokyoquant/edinetdata/data"
)

func fixedResponse(response string, err error) generateFunc {
	return func(_ context.Context, _ string) (string, error) {
		return response, err
	}
}

var _ = Describe("ExpertAnalyzer", func() {
	var filing *data.Filing

	BeforeEach(func() {
		filing = &data.Filing{
			DocumentID: "S100TEST",
			Ticker:     "7203",
			FiscalYear: "2025",
			Quarter:    "Q2",
			ReportType: "quarterly",
		}
	})

	When("the model answers with valid JSON", func() {
		It("returns a successful artifact", func() {
			analyzer := newExpertAnalyzer(fixedResponse(`{
				"overall_score": 72,
				"investment_grade": "B+",
				"facet_scores": {"収益性": 8},
				"investment_points": ["営業CFが潤沢"],
				"risk_analysis": "為替の影響に注意",
				"outlook": "堅調",
				"confidence": 0.8,
				"score_breakdown": {
					"base_score": 55,
					"positive_factors": [{"factor": "増益", "impact": 8}, {"factor": "好調なCF", "impact": 7}],
					"negative_factors": [{"factor": "円高", "impact": -3}]
				}
			}`, nil), 1, nil)

			artifact := analyzer.Analyze(context.Background(), "決算書類本文", filing, nil)
			Expect(artifact.Status.Success).To(BeTrue())
			Expect(artifact.OverallScore).To(Equal(72))
			Expect(artifact.Grade).To(Equal(data.GradeBPlus))
			Expect(artifact.ScoreCorrected).To(BeFalse())
			Expect(artifact.GradeAdjusted).To(BeFalse())
		})

		It("accepts a fenced JSON block", func() {
			analyzer := newExpertAnalyzer(fixedResponse("```json\n{\"overall_score\": 60, \"investment_grade\": \"B+\", \"confidence\": 0.5}\n```", nil), 1, nil)

			artifact := analyzer.Analyze(context.Background(), "本文", filing, nil)
			Expect(artifact.Status.Success).To(BeTrue())
			Expect(artifact.OverallScore).To(Equal(60))
		})
	})

	When("the score disagrees with its own breakdown", func() {
		It("overwrites the score and flags the correction", func() {
			analyzer := newExpertAnalyzer(fixedResponse(`{
				"overall_score": 95,
				"investment_grade": "A+",
				"confidence": 0.9,
				"score_breakdown": {
					"base_score": 55,
					"positive_factors": [{"factor": "増収", "impact": 5}],
					"negative_factors": []
				}
			}`, nil), 1, nil)

			artifact := analyzer.Analyze(context.Background(), "本文", filing, nil)
			Expect(artifact.OverallScore).To(Equal(60))
			Expect(artifact.ScoreCorrected).To(BeTrue())
			// A+ is three steps from the B the rubric expects at 60
			Expect(artifact.Grade).To(Equal(data.GradeB))
			Expect(artifact.GradeAdjusted).To(BeTrue())
		})
	})

	When("the grade is one step off the rubric", func() {
		It("keeps the model's grade", func() {
			analyzer := newExpertAnalyzer(fixedResponse(`{"overall_score": 60, "investment_grade": "B", "confidence": 0.5}`, nil), 1, nil)

			artifact := analyzer.Analyze(context.Background(), "本文", filing, nil)
			Expect(artifact.Grade).To(Equal(data.GradeB))
			Expect(artifact.GradeAdjusted).To(BeFalse())
		})
	})

	When("the generation call fails", func() {
		It("returns a retryable API-error fallback", func() {
			analyzer := newExpertAnalyzer(fixedResponse("", errors.New("backend unavailable")), 1, nil)

			artifact := analyzer.Analyze(context.Background(), "本文", filing, nil)
			Expect(artifact.Status.Success).To(BeFalse())
			Expect(artifact.Status.ErrorType).To(Equal(ErrorTypeAPIError))
			Expect(artifact.Status.IsRetryable).To(BeTrue())
			Expect(artifact.OverallScore).To(Equal(fallbackScore))
			Expect(artifact.Grade).To(Equal(data.GradeB))
			Expect(artifact.Confidence).To(Equal(fallbackConfidence))
		})

		It("recognizes quota errors as rate limiting", func() {
			analyzer := newExpertAnalyzer(fixedResponse("", errors.New("429 RESOURCE_EXHAUSTED: quota exceeded")), 1, nil)

			artifact := analyzer.Analyze(context.Background(), "本文", filing, nil)
			Expect(artifact.Status.ErrorType).To(Equal(ErrorTypeRateLimit))
			Expect(artifact.Status.IsRetryable).To(BeTrue())
		})
	})

	When("the response body mentions quota exhaustion", func() {
		It("falls back as rate limited", func() {
			analyzer := newExpertAnalyzer(fixedResponse("Error: quota exceeded for model", nil), 1, nil)

			artifact := analyzer.Analyze(context.Background(), "本文", filing, nil)
			Expect(artifact.Status.ErrorType).To(Equal(ErrorTypeRateLimit))
		})
	})

	When("the response is empty", func() {
		It("falls back with the empty-text error type", func() {
			analyzer := newExpertAnalyzer(fixedResponse("   ", nil), 1, nil)

			artifact := analyzer.Analyze(context.Background(), "本文", filing, nil)
			Expect(artifact.Status.ErrorType).To(Equal(ErrorTypeEmptyText))
		})
	})

	When("the response JSON is malformed", func() {
		It("salvages it through repair", func() {
			analyzer := newExpertAnalyzer(fixedResponse(`{"overall_score": 58, "investment_grade": "B", "confidence": 0.6,`, nil), 1, nil)

			artifact := analyzer.Analyze(context.Background(), "本文", filing, nil)
			Expect(artifact.Status.Success).To(BeTrue())
			Expect(artifact.OverallScore).To(Equal(58))
		})
	})

	When("all concurrency slots are taken", func() {
		It("refuses with a rate-limit fallback instead of queueing", func() {
			block := make(chan struct{})
			started := make(chan struct{})

			analyzer := newExpertAnalyzer(func(_ context.Context, _ string) (string, error) {
				close(started)
				<-block
				return `{"overall_score": 55, "investment_grade": "B", "confidence": 0.5}`, nil
			}, 1, nil)

			go analyzer.Analyze(context.Background(), "本文", filing, nil)
			<-started

			artifact := analyzer.Analyze(context.Background(), "本文", filing, nil)
			close(block)

			Expect(artifact.Status.Success).To(BeFalse())
			Expect(artifact.Status.ErrorType).To(Equal(ErrorTypeRateLimit))
		})
	})
})

var _ = Describe("buildExpertPrompt", func() {
	It("caps the filing text and embeds the sentiment signal", func() {
		filing := &data.Filing{DocumentID: "S100TEST", Ticker: "7203", FiscalYear: "2025", Quarter: "Q2", ReportType: "quarterly"}
		sentiment := &data.SentimentArtifact{SentimentScore: 50, Confidence: data.ConfidenceHigh}

		long := make([]rune, promptTextLimit+500)
		for i := range long {
			long[i] = 'あ'
		}

		prompt := buildExpertPrompt(string(long), filing, sentiment)
		Expect(prompt).To(ContainSubstring("75/100"))
		Expect(len([]rune(prompt))).To(BeNumerically("<", promptTextLimit+2000))
	})
})
