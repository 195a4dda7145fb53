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
package extract_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tokyoquant/edinetdata/extract"
)

var _ = Describe("CleanText", func() {
	markers := extract.DefaultSectionMarkers()

	It("strips markup and expands entities", func() {
		cleaned := extract.CleanText("<p>売上高&amp;利益</p>", markers)
		Expect(cleaned).To(Equal("売上高&利益"))
	})

	It("collapses ASCII and full-width whitespace", func() {
		cleaned := extract.CleanText("当期の　　概況  です", markers)
		Expect(cleaned).To(Equal("当期の 概況 です"))
	})

	It("drops lines that are only numbers and punctuation", func() {
		cleaned := extract.CleanText("123,456\n- 1 -\n当期の概況\n※ 1", markers)
		Expect(cleaned).To(Equal("当期の概況"))
	})

	It("wraps marker lines in importance sentinels", func() {
		cleaned := extract.CleanText("経営成績の概況\nその他の事項", markers)
		Expect(cleaned).To(Equal(extract.SectionStart + "経営成績の概況" + extract.SectionEnd + "\nその他の事項"))
	})

	It("returns empty for markup-only input", func() {
		Expect(extract.CleanText("<html><body><img src='x.png'/></body></html>", markers)).To(BeEmpty())
	})
})

var _ = Describe("ImportantSections", func() {
	It("returns the text between each sentinel pair in order", func() {
		text := extract.SectionStart + "第一" + extract.SectionEnd + "つなぎ" +
			extract.SectionStart + "第二" + extract.SectionEnd

		Expect(extract.ImportantSections(text)).To(Equal([]string{"第一", "第二"}))
	})

	It("ignores an unterminated sentinel", func() {
		text := extract.SectionStart + "開いたまま"
		Expect(extract.ImportantSections(text)).To(BeEmpty())
	})

	It("returns nothing for plain text", func() {
		Expect(extract.ImportantSections("重要な記述")).To(BeEmpty())
	})
})
