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
)

var _ = Describe("ExtractCashFlow", func() {
	When("the text contains all three statement lines", func() {
		It("extracts the amounts in millions of yen", func() {
			text := `営業活動によるキャッシュ・フロー 1,500,000
投資活動によるキャッシュ・フロー △800,000
財務活動によるキャッシュ・フロー △500,000`

			figures := analyze.ExtractCashFlow(text)
			Expect(figures.Operating).To(HaveValue(Equal(int64(1_500_000))))
			Expect(figures.Investing).To(HaveValue(Equal(int64(-800_000))))
			Expect(figures.Financing).To(HaveValue(Equal(int64(-500_000))))
		})

		It("derives free cash flow from operating plus investing", func() {
			text := `営業活動によるキャッシュ・フロー 1,500,000
投資活動によるキャッシュ・フロー △800,000`

			figures := analyze.ExtractCashFlow(text)
			Expect(figures.Free).To(HaveValue(Equal(int64(700_000))))
		})
	})

	When("free cash flow is stated explicitly", func() {
		It("prefers the stated figure over the derived one", func() {
			text := `営業活動によるキャッシュフロー 1,000
投資活動によるキャッシュフロー △400
フリー・キャッシュ・フロー 650`

			figures := analyze.ExtractCashFlow(text)
			Expect(figures.Free).To(HaveValue(Equal(int64(650))))
		})
	})

	When("a label matches more than once", func() {
		It("keeps the match with the most digits", func() {
			text := `営業CF 12
営業活動によるキャッシュ・フロー 345,678`

			figures := analyze.ExtractCashFlow(text)
			Expect(figures.Operating).To(HaveValue(Equal(int64(345_678))))
		})
	})

	When("labels use alternate markers", func() {
		It("handles the ▲ negative marker and the no-dot spelling", func() {
			text := `財務活動によるキャッシュフロー ▲2,500`

			figures := analyze.ExtractCashFlow(text)
			Expect(figures.Financing).To(HaveValue(Equal(int64(-2_500))))
		})

		It("tolerates unit annotations between label and amount", func() {
			text := `営業活動によるキャッシュ・フロー (百万円) 9,876`

			figures := analyze.ExtractCashFlow(text)
			Expect(figures.Operating).To(HaveValue(Equal(int64(9_876))))
		})
	})

	When("no figures are present", func() {
		It("returns nil fields", func() {
			figures := analyze.ExtractCashFlow("当期の業績は好調に推移しました。")
			Expect(figures.Operating).To(BeNil())
			Expect(figures.Investing).To(BeNil())
			Expect(figures.Financing).To(BeNil())
			Expect(figures.Free).To(BeNil())
		})
	})
})
