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
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tokyoquant/edinetdata/analyze"
	"github.com/tokyoquant/edinetdata/backblaze"
	"github.com/tokyoquant/edinetdata/edinet"
	"github.com/tokyoquant/edinetdata/extract"
	"github.com/tokyoquant/edinetdata/library"
)

var (
	analyzeForce      bool
	analyzeSearchOnly bool
	analyzeDaysBack   int
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <ticker>",
	Short: "Analyze the most recent earnings disclosure for a company",
	Long: `The analyze sub-command finds the newest earnings-related filing for the
given securities code on EDINET, downloads the XBRL archive, extracts cash
flow figures and management commentary, scores the text with keyword
sentiment, and (when a Gemini API key is configured) asks an AI analyst for
an investment grade. Results are stored in the database and printed to
stdout as JSON.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ticker := args[0]
		ctx := log.Logger.WithContext(context.Background())

		myLibrary := &library.Library{DBUrl: viper.GetString("db.url")}
		if err := myLibrary.Connect(ctx); err != nil {
			log.Fatal().Err(err).Msg("could not connect to library")
		}
		defer myLibrary.Close()

		orchestrator := buildOrchestrator(ctx, myLibrary)

		if analyzeSearchOnly {
			descriptors, err := orchestrator.Search(ctx, ticker, analyzeDaysBack)
			if err != nil {
				log.Fatal().Err(err).Str("Ticker", ticker).Msg("document search failed")
			}

			out, err := json.MarshalIndent(descriptors, "", "  ")
			if err != nil {
				log.Fatal().Err(err).Msg("could not marshal descriptors")
			}

			fmt.Println(string(out))
			return
		}

		result := orchestrator.GetOrAnalyze(ctx, ticker, analyzeForce)

		out, err := analyze.FormatResult(result)
		if err != nil {
			log.Fatal().Err(err).Msg("could not format analysis result")
		}

		fmt.Println(out)

		if !result.Success {
			os.Exit(1)
		}
	},
}

// buildOrchestrator wires the analysis pipeline from viper configuration
func buildOrchestrator(ctx context.Context, myLibrary *library.Library) *analyze.Orchestrator {
	client := edinet.NewClient(viper.GetString("edinet.subscription_key"), 2*time.Second)
	fallback := edinet.NewV1Client(2 * time.Second)

	aliases := edinet.NewAliasTable()
	if aliasFN := viper.GetString("edinet.alias_file"); aliasFN != "" {
		loaded, err := edinet.LoadAliasTable(aliasFN)
		if err != nil {
			log.Fatal().Err(err).Str("FileName", aliasFN).Msg("could not load company alias file")
		}
		aliases = loaded
	}

	index := edinet.NewDocumentIndex(client, fallback, time.Hour, aliases)

	expert, err := analyze.NewExpertAnalyzer(ctx, viper.GetString("gemini.apikey"),
		viper.GetString("gemini.model"), viper.GetInt("gemini.max_concurrent"),
		analyze.DefaultRateLimitPhrases())
	if err != nil {
		log.Fatal().Err(err).Msg("could not create AI expert analyzer")
	}

	var backup analyze.ArchiveBackup
	if store := backblaze.NewArchiveStore(viper.GetString("backblaze.bucket")); store != nil {
		backup = store
	}

	daysBack := analyzeDaysBack
	if daysBack <= 0 {
		daysBack = viper.GetInt("edinet.days_back")
	}

	return analyze.NewOrchestrator(myLibrary, index, client, extract.NewExtractor(nil),
		analyze.NewSentimentAnalyzer(analyze.DefaultKeywords()), expert,
		analyze.NewCacheStore(0), backup, analyze.Config{
			DaysBack:         daysBack,
			PatternThreshold: viper.GetInt64("analysis.pattern_threshold"),
		})
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeForce, "force", false, "ignore cached and recently analyzed results")
	analyzeCmd.Flags().BoolVar(&analyzeSearchOnly, "search-only", false, "list matching filings without analyzing them")
	analyzeCmd.Flags().IntVar(&analyzeDaysBack, "days-back", 0, "how many days of filings to search (default 120)")
}
