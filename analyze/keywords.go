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

// Keywords holds the five immutable lists the sentiment analyzer counts
// against. Operators may replace any list through configuration; the zero
// value is not usable, call DefaultKeywords.
type Keywords struct {
	Positive    []string
	Negative    []string
	Confidence  []string
	Uncertainty []string
	Risk        []string
}

// DefaultKeywords returns the built-in Japanese keyword lists
func DefaultKeywords() Keywords {
	return Keywords{
		Positive: []string{
			"増収", "増益", "過去最高益", "好調", "順調", "堅調",
			"改善", "拡大", "成長", "回復", "上回る", "増加",
		},
		Negative: []string{
			"減収", "減益", "赤字", "損失", "悪化", "低迷",
			"下回る", "厳しい", "減少", "不振",
		},
		Confidence: []string{
			"達成", "確実", "計画どおり", "予定どおり", "実現", "見込んで",
		},
		Uncertainty: []string{
			"不透明", "不確実", "未定", "可能性があり", "おそれ", "予断を許さない",
		},
		Risk: []string{
			"リスク", "訴訟", "災害", "為替変動", "規制強化", "競争激化", "減損",
		},
	}
}
