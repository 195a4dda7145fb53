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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tokyoquant/edinetdata/analyze"
	"github.com/tokyoquant/edinetdata/data"
)

func figures(operating, investing, financing int64) *analyze.CashFlowFigures {
	free := operating + investing
	return &analyze.CashFlowFigures{
		Operating: &operating,
		Investing: &investing,
		Financing: &financing,
		Free:      &free,
	}
}

var _ = Describe("ClassifyPattern", func() {
	DescribeTable("sign triples",
		func(operating, investing, financing int64, expected data.CashFlowPattern) {
			Expect(analyze.ClassifyPattern(figures(operating, investing, financing), 0)).To(Equal(expected))
		},
		Entry("positive, negative, negative is ideal", int64(1_500_000), int64(-800_000), int64(-500_000), data.PatternIdeal),
		Entry("positive, negative, positive is growth", int64(50_000), int64(-80_000), int64(40_000), data.PatternGrowth),
		Entry("positive, positive, negative is recovery", int64(30_000), int64(20_000), int64(-40_000), data.PatternRecovery),
		Entry("negative, positive, negative is restructuring", int64(-30_000), int64(20_000), int64(-10_000), data.PatternRestructuring),
		Entry("negative, positive, positive is danger", int64(-30_000), int64(20_000), int64(40_000), data.PatternDanger),
		Entry("all positive is unknown", int64(30_000), int64(20_000), int64(40_000), data.PatternUnknown),
	)

	It("treats values inside the threshold band as zero", func() {
		// ±1,000 million yen rounds to zero, so no listed triple matches
		Expect(analyze.ClassifyPattern(figures(900, -800_000, -500_000), 0)).To(Equal(data.PatternUnknown))
	})

	It("treats missing figures as zero", func() {
		investing := int64(-800_000)
		partial := &analyze.CashFlowFigures{Investing: &investing}
		Expect(analyze.ClassifyPattern(partial, 0)).To(Equal(data.PatternUnknown))
	})

	It("honors a custom threshold", func() {
		Expect(analyze.ClassifyPattern(figures(900, -800_000, -500_000), 100)).To(Equal(data.PatternIdeal))
	})
})

var _ = Describe("HealthForPattern", func() {
	It("scores a strong ideal-pattern company as excellent", func() {
		cf := figures(1_500_000, -800_000, -500_000)
		Expect(analyze.HealthForPattern(cf, data.PatternIdeal)).To(Equal(data.HealthExcellent))
	})

	It("scores a danger-pattern company with heavy outflows as critical", func() {
		cf := figures(-10_000_000_000, 20_000, 40_000)
		Expect(analyze.HealthForPattern(cf, data.PatternUnknown)).To(Equal(data.HealthCritical))
	})

	It("scores a modest growth company as good", func() {
		// operating 30 + pattern 20 + free 10 = 60
		operating := int64(50_000)
		investing := int64(-49_000)
		financing := int64(40_000)
		free := int64(1_000)
		cf := &analyze.CashFlowFigures{
			Operating: &operating,
			Investing: &investing,
			Financing: &financing,
			Free:      &free,
		}
		Expect(analyze.HealthForPattern(cf, data.PatternGrowth)).To(Equal(data.HealthGood))
	})

	It("scores missing figures with an unknown pattern as critical", func() {
		Expect(analyze.HealthForPattern(&analyze.CashFlowFigures{}, data.PatternUnknown)).To(Equal(data.HealthCritical))
	})
})
