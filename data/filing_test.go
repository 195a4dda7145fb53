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
package data_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tokyoquant/edinetdata/data"
)

var _ = Describe("ReportTypeForDocCode", func() {
	DescribeTable("document type codes",
		func(code string, expected data.ReportType) {
			Expect(data.ReportTypeForDocCode(code)).To(Equal(expected))
		},
		Entry("annual securities report", "120", data.AnnualReport),
		Entry("amended report", "130", data.AnnualReport),
		Entry("quarterly report", "140", data.QuarterlyReport),
		Entry("earnings summary", "350", data.SummaryReport),
		Entry("anything else", "030", data.SummaryReport),
	)
})

var _ = Describe("QuarterForDescription", func() {
	DescribeTable("descriptions",
		func(description string, expected string) {
			Expect(data.QuarterForDescription(description)).To(Equal(expected))
		},
		Entry("first quarter", "第1四半期報告書", "Q1"),
		Entry("full-width first quarter", "第１四半期報告書", "Q1"),
		Entry("second quarter", "第2四半期報告書", "Q2"),
		Entry("third quarter", "第3四半期報告書", "Q3"),
		Entry("annual report", "有価証券報告書", "Q4"),
		Entry("empty description", "", "Q4"),
	)
})

var _ = Describe("DeriveEdinetCode", func() {
	It("zero-pads the ticker behind the prefix", func() {
		company := &data.Company{Ticker: "7203"}
		company.DeriveEdinetCode("E")
		Expect(company.EdinetCode).To(Equal("E07203"))
	})

	It("leaves an existing code alone", func() {
		company := &data.Company{Ticker: "7203", EdinetCode: "E02144"}
		company.DeriveEdinetCode("E")
		Expect(company.EdinetCode).To(Equal("E02144"))
	})
})

var _ = Describe("ScoreBreakdown", func() {
	It("computes base plus signed factor impacts", func() {
		breakdown := &data.ScoreBreakdown{
			BaseScore: 55,
			PositiveFactors: []data.ScoreFactor{
				{Factor: "増収増益", Impact: 8},
				{Factor: "潤沢な営業CF", Impact: 5},
			},
			NegativeFactors: []data.ScoreFactor{
				{Factor: "為替リスク", Impact: -4},
			},
		}

		Expect(breakdown.Computed()).To(Equal(64))
	})
})

var _ = Describe("GradeForScore", func() {
	DescribeTable("grade boundaries",
		func(score int, expected data.InvestmentGrade) {
			Expect(data.GradeForScore(score)).To(Equal(expected))
		},
		Entry("85 is A+", 85, data.GradeAPlus),
		Entry("84 is A", 84, data.GradeA),
		Entry("65 is B+", 65, data.GradeBPlus),
		Entry("50 is B", 50, data.GradeB),
		Entry("35 is C", 35, data.GradeC),
		Entry("34 is D", 34, data.GradeD),
	)
})
