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
package analyze_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tokyoquant/edinetdata/analyze"
	"github.com/tokyoquant/edinetdata/data"
	"github.com/tokyoquant/edinetdata/extract"
)

var _ = Describe("SentimentAnalyzer", func() {
	var analyzer *analyze.SentimentAnalyzer

	BeforeEach(func() {
		analyzer = analyze.NewSentimentAnalyzer(analyze.DefaultKeywords())
	})

	When("the narrative is upbeat", func() {
		It("scores strongly positive with very high confidence", func() {
			sections := map[string]string{
				"summary": "売上高は順調に推移し、過去最高益を達成しました。",
			}

			artifact := analyzer.Analyze(sections)
			Expect(artifact.PositiveExpressions).To(Equal(2))
			Expect(artifact.NegativeExpressions).To(BeZero())
			Expect(artifact.ConfidenceKeywords).To(Equal(1))
			Expect(artifact.SentimentScore).To(Equal(100.0))
			Expect(artifact.Confidence).To(Equal(data.ConfidenceVeryHigh))
			Expect(artifact.Risk).To(Equal(data.RiskLow))
		})

		It("records context windows for matched keywords", func() {
			sections := map[string]string{
				"summary": "当期の売上高は順調に推移しました。",
			}

			artifact := analyzer.Analyze(sections)
			Expect(artifact.Keywords).To(HaveKey("順調"))
			Expect(artifact.Keywords["順調"][0]).To(ContainSubstring("順調"))
		})
	})

	When("the narrative carries no tone signal", func() {
		It("reads as neutral rather than very low", func() {
			artifact := analyzer.Analyze(map[string]string{"summary": "当社は東京に本社を置いています。"})
			Expect(artifact.SentimentScore).To(BeZero())
			Expect(artifact.Confidence).To(Equal(data.ConfidenceModerate))
		})
	})

	When("text sits inside important-section sentinels", func() {
		It("counts it twice", func() {
			plain := analyzer.Analyze(map[string]string{"summary": "業績は順調です。"})
			important := analyzer.Analyze(map[string]string{
				"summary": extract.SectionStart + "業績は順調です。" + extract.SectionEnd,
			})

			Expect(plain.PositiveExpressions).To(Equal(1))
			Expect(important.PositiveExpressions).To(Equal(2))
		})
	})

	When("risk words pile up", func() {
		It("raises the severity by raw count even in long text", func() {
			padding := strings.Repeat("あ", 3000)
			text := padding + strings.Repeat("リスク、", 12)

			artifact := analyzer.Analyze(map[string]string{"risk": text})
			Expect(artifact.RiskMentions).To(Equal(12))
			Expect(artifact.Risk).To(Equal(data.RiskHigh))
		})

		It("flags dense risk language in short text as critical", func() {
			artifact := analyzer.Analyze(map[string]string{
				"risk": "訴訟リスク、災害リスク、為替変動リスクおよび規制強化のリスクがあります。",
			})
			Expect(artifact.Risk).To(Equal(data.RiskCritical))
		})
	})

	It("writes a Japanese three-part summary", func() {
		artifact := analyzer.Analyze(map[string]string{"summary": "業績は順調に推移しました。"})
		Expect(strings.Count(artifact.Summary, "。")).To(Equal(3))
		Expect(artifact.Summary).To(ContainSubstring("前向き"))
	})
})
