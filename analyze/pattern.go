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
	"github.com/tokyoquant/edinetdata/data"
)

// DefaultPatternThreshold is the magnitude band for pattern signs, in
// millions of yen: figures within ±1,000 (¥1 billion) are treated as zero
const DefaultPatternThreshold = int64(1000)

// ClassifyPattern maps the sign triple of the operating, investing, and
// financing cash flows onto a qualitative pattern. Values within the
// threshold band count as zero and any unlisted triple is unknown.
func ClassifyPattern(figures *CashFlowFigures, threshold int64) data.CashFlowPattern {
	if threshold <= 0 {
		threshold = DefaultPatternThreshold
	}

	op := signOf(figures.Operating, threshold)
	inv := signOf(figures.Investing, threshold)
	fin := signOf(figures.Financing, threshold)

	switch {
	case op > 0 && inv < 0 && fin < 0:
		return data.PatternIdeal
	case op > 0 && inv < 0 && fin > 0:
		return data.PatternGrowth
	case op > 0 && inv > 0 && fin < 0:
		return data.PatternRecovery
	case op < 0 && inv > 0 && fin < 0:
		return data.PatternRestructuring
	case op < 0 && inv > 0 && fin > 0:
		return data.PatternDanger
	}

	return data.PatternUnknown
}

func signOf(value *int64, threshold int64) int {
	if value == nil {
		return 0
	}

	switch {
	case *value > threshold:
		return 1
	case *value < -threshold:
		return -1
	}

	return 0
}

// HealthForPattern scores financial health from the operating magnitude, the
// pattern, and free cash flow, then buckets the total into a label
func HealthForPattern(figures *CashFlowFigures, pattern data.CashFlowPattern) data.HealthScore {
	total := operatingPoints(figures.Operating) + patternPoints(pattern) + freePoints(figures.Free)

	switch {
	case total >= 80:
		return data.HealthExcellent
	case total >= 60:
		return data.HealthGood
	case total >= 40:
		return data.HealthFair
	case total >= 20:
		return data.HealthPoor
	}

	return data.HealthCritical
}

// operatingPoints buckets operating cash flow magnitude (millions of yen):
// above ¥100bn, ¥10bn, positive, above -¥10bn, else
func operatingPoints(operating *int64) int {
	if operating == nil {
		return 0
	}

	switch {
	case *operating > 100_000:
		return 40
	case *operating > 10_000:
		return 30
	case *operating > 0:
		return 20
	case *operating > -10_000:
		return 10
	}

	return 0
}

func patternPoints(pattern data.CashFlowPattern) int {
	switch pattern {
	case data.PatternIdeal:
		return 30
	case data.PatternGrowth:
		return 20
	case data.PatternRecovery:
		return 10
	case data.PatternRestructuring:
		return 5
	case data.PatternDanger:
		return -20
	}

	return 0
}

func freePoints(free *int64) int {
	if free == nil {
		return 0
	}

	switch {
	case *free > 5_000:
		return 20
	case *free > 0:
		return 10
	case *free > -5_000:
		return 0
	}

	return -10
}
