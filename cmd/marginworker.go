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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tokyoquant/edinetdata/library"
	"github.com/tokyoquant/edinetdata/margin"
)

var (
	workerPDFPath   string
	workerDate      string
	workerStartPage int
	workerEndPage   int
	workerBatchSize int
	workerParquet   string
)

// marginWorkerCmd is the hidden subprocess entry point spawned by
// ingest-margin. It parses one page window and reports the record count
// on stdout so the coordinator can pick it up.
var marginWorkerCmd = &cobra.Command{
	Use:    "margin-worker",
	Hidden: true,
	Short:  "Parse one page window of a margin trading PDF",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := log.Logger.WithContext(context.Background())

		reportDate, err := time.Parse("20060102", workerDate)
		if err != nil {
			log.Fatal().Err(err).Str("Date", workerDate).Msg("report date must be formatted YYYYMMDD")
		}

		myLibrary := &library.Library{DBUrl: viper.GetString("db.url")}
		if err := myLibrary.Connect(ctx); err != nil {
			log.Fatal().Err(err).Msg("could not connect to library")
		}
		defer myLibrary.Close()

		records, err := margin.RunWorker(ctx, myLibrary, margin.WorkerOptions{
			PDFPath:     workerPDFPath,
			ReportDate:  reportDate,
			StartPage:   workerStartPage,
			EndPage:     workerEndPage,
			BatchSize:   workerBatchSize,
			ParquetPath: workerParquet,
		})
		if err != nil {
			log.Fatal().Err(err).Int("StartPage", workerStartPage).Int("EndPage", workerEndPage).
				Msg("margin worker failed")
		}

		fmt.Printf("%s%d\n", margin.ResultSentinel, records)
	},
}

func init() {
	rootCmd.AddCommand(marginWorkerCmd)
	marginWorkerCmd.Flags().StringVar(&workerPDFPath, "pdf", "", "path to the downloaded margin PDF")
	marginWorkerCmd.Flags().StringVar(&workerDate, "date", "", "report date of the weekly PDF (YYYYMMDD)")
	marginWorkerCmd.Flags().IntVar(&workerStartPage, "start-page", 1, "first page of the assigned window")
	marginWorkerCmd.Flags().IntVar(&workerEndPage, "end-page", 1, "last page of the assigned window")
	marginWorkerCmd.Flags().IntVar(&workerBatchSize, "batch-size", 0, "rows per database flush (default 100)")
	marginWorkerCmd.Flags().StringVar(&workerParquet, "parquet", "", "write parsed rows to this parquet file")

	for _, flag := range []string{"pdf", "date"} {
		if err := marginWorkerCmd.MarkFlagRequired(flag); err != nil {
			log.Panic().Err(err).Str("Flag", flag).Msg("MarkFlagRequired failed")
		}
	}
}
