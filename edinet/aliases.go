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
package edinet

import (
	"os"
	"strings"

	"github.com/gocarina/gocsv"
)

// companyAlias is one row of the alias CSV: a ticker and a name fragment
// to match against filer names in the document index
type companyAlias struct {
	Ticker string `csv:"ticker"`
	Alias  string `csv:"alias"`
}

// AliasTable maps tickers to known filer-name fragments. Submitter codes in
// the listing are frequently blank, so name matching is the only way to find
// some filings.
type AliasTable struct {
	aliases map[string][]string
}

// NewAliasTable returns an alias table seeded with well-known issuers
func NewAliasTable() *AliasTable {
	return &AliasTable{
		aliases: map[string][]string{
			"6501": {"日立製作所"},
			"6758": {"ソニーグループ", "ソニー"},
			"7203": {"トヨタ自動車"},
			"7267": {"本田技研工業", "ホンダ"},
			"8306": {"三菱UFJフィナンシャル・グループ"},
			"9432": {"日本電信電話", "NTT"},
			"9984": {"ソフトバンクグループ"},
		},
	}
}

// LoadAliasTable reads additional aliases from the CSV at path and merges
// them over the built-in table
func LoadAliasTable(path string) (*AliasTable, error) {
	table := NewAliasTable()

	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var rows []*companyAlias
	if err := gocsv.UnmarshalFile(fh, &rows); err != nil {
		return nil, err
	}

	for _, row := range rows {
		if row.Ticker == "" || row.Alias == "" {
			continue
		}

		table.aliases[row.Ticker] = append(table.aliases[row.Ticker], row.Alias)
	}

	return table, nil
}

// Add registers an alias for the ticker
func (table *AliasTable) Add(ticker string, alias string) {
	table.aliases[ticker] = append(table.aliases[ticker], alias)
}

// Aliases returns the known name fragments for the ticker
func (table *AliasTable) Aliases(ticker string) []string {
	return table.aliases[ticker]
}

// Matches reports whether the filer name contains any known alias for the
// ticker
func (table *AliasTable) Matches(ticker string, filerName string) bool {
	for _, alias := range table.aliases[ticker] {
		if strings.Contains(filerName, alias) {
			return true
		}
	}

	return false
}
