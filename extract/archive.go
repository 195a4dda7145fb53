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
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrArchive indicates the fetched document body could not be opened as a
// zip archive
var ErrArchive = errors.New("document archive cannot be opened")

const (
	// memberSizeLimit skips pathological members; EDINET bundles
	// occasionally carry image-heavy attachments
	memberSizeLimit = 100 << 20

	// memberProcessLimit bounds how many members are decoded per archive
	memberProcessLimit = 10

	// memberKeepLimit bounds the returned payload to the highest-value
	// members by extension priority and cleaned length
	memberKeepLimit = 3
)

// extensionPriority orders member extensions; structured XBRL first, then
// raw XML, then the HTML renditions
var extensionPriority = map[string]int{
	".xbrl": 4,
	".xml":  3,
	".htm":  2,
	".html": 1,
}

type extractedMember struct {
	name  string
	text  string
	score int
}

// Extractor decodes XBRL zip bundles into cleaned text sections
type Extractor struct {
	markers []string
}

// NewExtractor builds an extractor that wraps sections containing any of the
// given markers in sentinels. A nil marker list uses the defaults.
func NewExtractor(markers []string) *Extractor {
	if markers == nil {
		markers = DefaultSectionMarkers()
	}

	return &Extractor{markers: markers}
}

// Extract opens the archive and returns a map of member filename to cleaned
// text for the top members. An empty map is a valid result; bundles that
// contain only images or encrypted sections decode to nothing.
func (extractor *Extractor) Extract(archive []byte) (map[string]string, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrArchive, err.Error())
	}

	candidates := make([]*zip.File, 0, len(zipReader.File))
	for _, member := range zipReader.File {
		ext := strings.ToLower(filepath.Ext(member.Name))
		if _, ok := extensionPriority[ext]; !ok {
			continue
		}

		if member.UncompressedSize64 > memberSizeLimit {
			log.Warn().Str("Member", member.Name).Uint64("Size", member.UncompressedSize64).
				Msg("skipping oversized archive member")
			continue
		}

		candidates = append(candidates, member)
	}

	// process the highest-priority members first so the 10-member cap
	// lands on the most valuable content
	sort.SliceStable(candidates, func(i, j int) bool {
		pi := extensionPriority[strings.ToLower(filepath.Ext(candidates[i].Name))]
		pj := extensionPriority[strings.ToLower(filepath.Ext(candidates[j].Name))]
		return pi > pj
	})

	if len(candidates) > memberProcessLimit {
		candidates = candidates[:memberProcessLimit]
	}

	extracted := make([]*extractedMember, 0, len(candidates))
	for _, member := range candidates {
		raw, err := readZipMember(member)
		if err != nil {
			log.Warn().Err(err).Str("Member", member.Name).Msg("could not read archive member")
			continue
		}

		decoded := DecodeJapanese(raw)
		cleaned := CleanText(decoded, extractor.markers)
		if cleaned == "" {
			continue
		}

		priority := extensionPriority[strings.ToLower(filepath.Ext(member.Name))]
		extracted = append(extracted, &extractedMember{
			name:  member.Name,
			text:  cleaned,
			score: priority * len(cleaned),
		})
	}

	sort.SliceStable(extracted, func(i, j int) bool {
		return extracted[i].score > extracted[j].score
	})

	if len(extracted) > memberKeepLimit {
		extracted = extracted[:memberKeepLimit]
	}

	sections := make(map[string]string, len(extracted))
	for _, member := range extracted {
		sections[member.name] = member.text
	}

	return sections, nil
}

func readZipMember(member *zip.File) ([]byte, error) {
	fh, err := member.Open()
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return io.ReadAll(fh)
}

// DecodeJapanese converts raw member bytes to a UTF-8 string. BOM markers
// are honored first; otherwise candidate encodings are probed in order and
// the first decoding that yields a Japanese character near the start wins.
func DecodeJapanese(raw []byte) string {
	if len(raw) >= 3 && bytes.Equal(raw[:3], []byte{0xEF, 0xBB, 0xBF}) {
		return string(raw[3:])
	}

	if len(raw) >= 2 {
		if bytes.Equal(raw[:2], []byte{0xFF, 0xFE}) {
			return decodeWith(raw, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM))
		}

		if bytes.Equal(raw[:2], []byte{0xFE, 0xFF}) {
			return decodeWith(raw, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM))
		}
	}

	if utf8.Valid(raw) && containsJapanese(string(raw)) {
		return string(raw)
	}

	// CP932 decodes through the same table as Shift_JIS here
	probes := []encoding.Encoding{japanese.ShiftJIS, japanese.EUCJP, japanese.ISO2022JP}
	for _, probe := range probes {
		decoded := decodeWith(raw, probe)
		if decoded != "" && containsJapanese(decoded) {
			return decoded
		}
	}

	if utf8.Valid(raw) {
		return string(raw)
	}

	return strings.ToValidUTF8(string(raw), "")
}

func decodeWith(raw []byte, enc encoding.Encoding) string {
	decoded, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return ""
	}

	return string(decoded)
}

// containsJapanese reports whether any of the first 1,000 runes falls in the
// Hiragana, Katakana, or CJK ideograph ranges
func containsJapanese(text string) bool {
	checked := 0
	for _, r := range text {
		if checked >= 1000 {
			return false
		}
		checked++

		if (r >= 0x3040 && r <= 0x309F) || (r >= 0x30A0 && r <= 0x30FF) || (r >= 0x4E00 && r <= 0x9FFF) {
			return true
		}
	}

	return false
}
