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
package extract

import (
	"html"
	"regexp"
	"strings"
)

// Sentinels wrapping lines the analyzers should weight more heavily
const (
	SectionStart = "[[重要]]"
	SectionEnd   = "[[/重要]]"
)

// DefaultSectionMarkers returns the phrases that flag a line as belonging to
// an important narrative section of a filing
func DefaultSectionMarkers() []string {
	return []string{
		"経営方針",
		"経営成績",
		"キャッシュ・フロー",
		"キャッシュフロー",
		"リスク",
		"業績",
		"財政状態",
		"見通し",
	}
}

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`[ \t\x{3000}]+`)
	noiseLinePattern  = regexp.MustCompile(`^[0-9０-９\pP\pS\s]*$`)
)

// CleanText strips markup from decoded member text, expands HTML entities,
// collapses whitespace, drops numeric noise lines, and wraps lines that
// contain a section marker in sentinels
func CleanText(raw string, markers []string) string {
	text := tagPattern.ReplaceAllString(raw, " ")
	text = html.UnescapeString(text)

	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))

	for _, line := range lines {
		line = whitespacePattern.ReplaceAllString(line, " ")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if noiseLinePattern.MatchString(line) {
			continue
		}

		if lineHasMarker(line, markers) {
			line = SectionStart + line + SectionEnd
		}

		cleaned = append(cleaned, line)
	}

	return strings.Join(cleaned, "\n")
}

func lineHasMarker(line string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(line, marker) {
			return true
		}
	}

	return false
}

// ImportantSections returns the text between every sentinel pair in order
func ImportantSections(text string) []string {
	sections := []string{}
	rest := text

	for {
		start := strings.Index(rest, SectionStart)
		if start < 0 {
			break
		}

		rest = rest[start+len(SectionStart):]
		end := strings.Index(rest, SectionEnd)
		if end < 0 {
			break
		}

		sections = append(sections, rest[:end])
		rest = rest[end+len(SectionEnd):]
	}

	return sections
}
