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
package margin_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tokyoquant/edinetdata/margin"
)

var _ = Describe("ParseRow", func() {
	reportDate := time.Date(2025, time.May, 30, 0, 0, 0, 0, time.UTC)

	goodRow := []string{
		"B トヨタ自動車 7203 普通株式",
		"1,234,567", "△12,345", "2,345,678", "34,567",
		"111,111", "222,222", "333,333", "444,444", "10.5",
	}

	It("parses a well-formed issue row", func() {
		issue, snapshot, ok := margin.ParseRow(goodRow, reportDate)
		Expect(ok).To(BeTrue())
		Expect(issue.Ticker).To(Equal("7203"))
		Expect(issue.Name).To(Equal("トヨタ自動車"))
		Expect(snapshot.Ticker).To(Equal("7203"))
		Expect(snapshot.ReportDate).To(Equal(reportDate))
		Expect(snapshot.SellOutstanding).To(Equal(int64(1_234_567)))
		Expect(snapshot.SellDelta).To(Equal(int64(-12_345)))
		Expect(snapshot.BuyOutstanding).To(Equal(int64(2_345_678)))
		Expect(snapshot.StandardizedBuy).To(Equal(int64(444_444)))
	})

	It("treats bare dashes as zero balances", func() {
		row := []string{
			"B 日立製作所 6501 普通株式",
			"-", "-", "100", "△5", "-", "-", "200", "300", "1.0",
		}

		_, snapshot, ok := margin.ParseRow(row, reportDate)
		Expect(ok).To(BeTrue())
		Expect(snapshot.SellOutstanding).To(BeZero())
		Expect(snapshot.BuyOutstanding).To(Equal(int64(100)))
		Expect(snapshot.BuyDelta).To(Equal(int64(-5)))
	})

	It("rejects rows without the section prefix", func() {
		row := append([]string{"C トヨタ自動車 7203 普通株式"}, goodRow[1:]...)
		_, _, ok := margin.ParseRow(row, reportDate)
		Expect(ok).To(BeFalse())
	})

	It("rejects rows for other share classes", func() {
		row := append([]string{"B トヨタ自動車 7203 優先株式"}, goodRow[1:]...)
		_, _, ok := margin.ParseRow(row, reportDate)
		Expect(ok).To(BeFalse())
	})

	It("rejects rows with too few columns", func() {
		_, _, ok := margin.ParseRow(goodRow[:6], reportDate)
		Expect(ok).To(BeFalse())
	})

	It("rejects rows with fewer than eight numeric columns", func() {
		row := []string{
			"B トヨタ自動車 7203 普通株式",
			"1", "2", "3", "n/a", "x", "y", "z", "w", "v",
		}

		_, _, ok := margin.ParseRow(row, reportDate)
		Expect(ok).To(BeFalse())
	})

	It("accepts five-digit securities codes", func() {
		row := append([]string{"B サンプル銘柄 72030 普通株式"}, goodRow[1:]...)
		issue, _, ok := margin.ParseRow(row, reportDate)
		Expect(ok).To(BeTrue())
		Expect(issue.Ticker).To(Equal("72030"))
	})
})

var _ = Describe("ParseSignedAmount", func() {
	DescribeTable("cell values",
		func(cell string, expected int64, expectedOK bool) {
			amount, ok := margin.ParseSignedAmount(cell)
			Expect(ok).To(Equal(expectedOK))
			Expect(amount).To(Equal(expected))
		},
		Entry("plain number", "1234", int64(1234), true),
		Entry("comma separated", "1,234,567", int64(1_234_567), true),
		Entry("triangle negative", "△5,000", int64(-5_000), true),
		Entry("filled triangle negative", "▲42", int64(-42), true),
		Entry("ASCII dash means zero", "-", int64(0), true),
		Entry("full-width minus means zero", "−", int64(0), true),
		Entry("padded value", "  987  ", int64(987), true),
		Entry("non-numeric text", "普通株式", int64(0), false),
		Entry("empty cell", "", int64(0), false),
	)
})

var _ = Describe("SourceURL", func() {
	It("builds the JPX weekly report URL for the date", func() {
		url := margin.SourceURL(time.Date(2025, time.May, 30, 0, 0, 0, 0, time.UTC))
		Expect(url).To(Equal("https://www.jpx.co.jp/markets/statistics-equities/margin/tvdivq0000001rnl-att/syumatsu2025053000.pdf"))
	})
})
