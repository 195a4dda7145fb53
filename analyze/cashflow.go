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
	"regexp"
	"strconv"
	"strings"
)

// CashFlowFigures are the extracted amounts in 百万円 (millions of yen).
// A nil field means the figure was not found.
type CashFlowFigures struct {
	Operating *int64
	Investing *int64
	Financing *int64
	Free      *int64
}

// amountGroup captures a signed-or-unsigned numeric literal, possibly
// prefixed by the Japanese negative markers △ or ▲ and containing
// thousand-separator commas
const amountGroup = `([△▲-]?[0-9][0-9,]*)`

// gap tolerates label punctuation and unit annotations between the line
// label and its amount without crossing into the next figure
const gap = `[^0-9△▲]{0,40}?`

var (
	operatingPatterns = compileAmountPatterns(
		`営業活動によるキャッシュ・フロー`,
		`営業活動によるキャッシュフロー`,
		`営業活動による現金及び現金同等物`,
		`営業CF`,
	)

	investingPatterns = compileAmountPatterns(
		`投資活動によるキャッシュ・フロー`,
		`投資活動によるキャッシュフロー`,
		`投資活動による現金及び現金同等物`,
		`投資CF`,
	)

	financingPatterns = compileAmountPatterns(
		`財務活動によるキャッシュ・フロー`,
		`財務活動によるキャッシュフロー`,
		`財務活動による現金及び現金同等物`,
		`財務CF`,
	)

	freePatterns = compileAmountPatterns(
		`フリー・キャッシュ・フロー`,
		`フリーキャッシュ・フロー`,
		`フリーキャッシュフロー`,
	)
)

func compileAmountPatterns(labels ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(labels))
	for _, label := range labels {
		patterns = append(patterns, regexp.MustCompile(label+gap+amountGroup))
	}

	return patterns
}

// ExtractCashFlow scans cleaned filing text for the three cash-flow
// statement lines plus free cash flow. When a figure matches more than once
// the match with the longest digit string wins; summary figures are typeset
// with more digits than per-line detail. Free cash flow falls back to
// operating + investing when not stated.
func ExtractCashFlow(text string) *CashFlowFigures {
	figures := &CashFlowFigures{
		Operating: bestAmount(text, operatingPatterns),
		Investing: bestAmount(text, investingPatterns),
		Financing: bestAmount(text, financingPatterns),
		Free:      bestAmount(text, freePatterns),
	}

	if figures.Free == nil && figures.Operating != nil && figures.Investing != nil {
		free := *figures.Operating + *figures.Investing
		figures.Free = &free
	}

	return figures
}

func bestAmount(text string, patterns []*regexp.Regexp) *int64 {
	var best *int64
	bestDigits := 0

	for _, pattern := range patterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			amount, ok := parseAmount(match[1])
			if !ok {
				continue
			}

			digits := countDigits(match[1])
			if digits > bestDigits {
				bestDigits = digits
				best = &amount
			}
		}
	}

	return best
}

// parseAmount normalizes a captured literal: thousand separators are
// stripped and the △/▲ negative markers map to a leading minus
func parseAmount(literal string) (int64, bool) {
	literal = strings.ReplaceAll(literal, ",", "")
	literal = strings.ReplaceAll(literal, "△", "-")
	literal = strings.ReplaceAll(literal, "▲", "-")

	amount, err := strconv.ParseInt(literal, 10, 64)
	if err != nil {
		return 0, false
	}

	return amount, true
}

func countDigits(literal string) int {
	count := 0
	for _, r := range literal {
		if r >= '0' && r <= '9' {
			count++
		}
	}

	return count
}
