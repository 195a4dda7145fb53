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
package cmd

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tokyoquant/edinetdata/margin"
)

var (
	diagnoseDate          string
	diagnosePagesPerBatch int
	diagnoseCountRows     bool
)

// diagnosePDFCmd represents the diagnose-pdf command
var diagnosePDFCmd = &cobra.Command{
	Use:   "diagnose-pdf",
	Short: "Inspect a weekly JPX margin PDF without ingesting it",
	Long: `The diagnose-pdf sub-command downloads the weekly margin trading balance
PDF for the given report date and reports its size, page count, and the
batch plan an ingestion run would use. With --count-data-rows it also parses
every page and counts the issue rows that would be ingested.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := log.Logger.WithContext(context.Background())

		reportDate, err := time.Parse("20060102", diagnoseDate)
		if err != nil {
			log.Fatal().Err(err).Str("Date", diagnoseDate).Msg("report date must be formatted YYYYMMDD")
		}

		diagnosis, err := margin.Diagnose(ctx, reportDate, diagnosePagesPerBatch, diagnoseCountRows)
		if err != nil {
			log.Fatal().Err(err).Msg("could not diagnose margin PDF")
		}

		out, err := json.MarshalIndent(diagnosis, "", "  ")
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal diagnosis")
		}

		fmt.Println(string(out))
	},
}

func init() {
	rootCmd.AddCommand(diagnosePDFCmd)
	diagnosePDFCmd.Flags().StringVar(&diagnoseDate, "date", "", "report date of the weekly PDF (YYYYMMDD)")
	diagnosePDFCmd.Flags().IntVar(&diagnosePagesPerBatch, "pages-per-batch", 10, "PDF pages handled per worker")
	diagnosePDFCmd.Flags().BoolVar(&diagnoseCountRows, "count-data-rows", false, "parse every page and count issue rows")

	if err := diagnosePDFCmd.MarkFlagRequired("date"); err != nil {
		log.Panic().Err(err).Msg("MarkFlagRequired for date failed")
	}
}
