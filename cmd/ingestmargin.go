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
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tokyoquant/edinetdata/library"
	"github.com/tokyoquant/edinetdata/margin"
)

var (
	ingestMarginDate          string
	ingestMarginForce         bool
	ingestMarginPagesPerBatch int
	ingestMarginBatchSize     int
	ingestMarginCoordinated   bool
)

// ingestMarginCmd represents the ingest-margin command
var ingestMarginCmd = &cobra.Command{
	Use:   "ingest-margin",
	Short: "Ingest a weekly JPX margin trading balance PDF",
	Long: `The ingest-margin sub-command downloads the weekly margin trading balance
PDF published by JPX for the given report date, parses the per-issue rows,
and upserts margin snapshots into the database. Parsing is split into page
windows; each window can run as a separate worker subprocess so that a
runaway parse cannot take down the whole run.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := log.Logger.WithContext(context.Background())

		reportDate, err := time.Parse("20060102", ingestMarginDate)
		if err != nil {
			log.Fatal().Err(err).Str("Date", ingestMarginDate).Msg("report date must be formatted YYYYMMDD")
		}

		myLibrary := &library.Library{DBUrl: viper.GetString("db.url")}
		if err := myLibrary.Connect(ctx); err != nil {
			log.Fatal().Err(err).Msg("could not connect to library")
		}
		defer myLibrary.Close()

		err = margin.RunCoordinator(ctx, myLibrary, margin.CoordinatorOptions{
			ReportDate:         reportDate,
			Force:              ingestMarginForce,
			PagesPerBatch:      ingestMarginPagesPerBatch,
			BatchSize:          ingestMarginBatchSize,
			WorkersCoordinated: ingestMarginCoordinated,
			HealthCheckID:      viper.GetString("healthchecks.margin_id"),
			BackblazeBucket:    viper.GetString("backblaze.bucket"),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("margin ingestion failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(ingestMarginCmd)
	ingestMarginCmd.Flags().StringVar(&ingestMarginDate, "date", "", "report date of the weekly PDF (YYYYMMDD)")
	ingestMarginCmd.Flags().BoolVar(&ingestMarginForce, "force", false, "re-ingest even if snapshots already exist for the date")
	ingestMarginCmd.Flags().IntVar(&ingestMarginPagesPerBatch, "pages-per-batch", 10, "PDF pages handled per worker")
	ingestMarginCmd.Flags().IntVar(&ingestMarginBatchSize, "batch-size", 0, "rows per database flush (default 100)")
	ingestMarginCmd.Flags().BoolVar(&ingestMarginCoordinated, "workers-coordinated", false, "run each page window as a worker subprocess")

	if err := ingestMarginCmd.MarkFlagRequired("date"); err != nil {
		log.Panic().Err(err).Msg("MarkFlagRequired for date failed")
	}
}
