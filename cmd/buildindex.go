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

	"github.com/hako/durafmt"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tokyoquant/edinetdata/edinet"
)

var buildIndexDaysBack int

// buildIndexCmd represents the build-index command
var buildIndexCmd = &cobra.Command{
	Use:   "build-index",
	Short: "Warm the disclosure index cache for recent business days",
	Long: `The build-index sub-command walks backwards over recent business days and
lists the earnings-related disclosures published on each. Listings are cached
so that subsequent analyze runs avoid re-fetching the per-day document lists
from EDINET.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := log.Logger.WithContext(context.Background())
		start := time.Now()

		client := edinet.NewClient(viper.GetString("edinet.subscription_key"), 2*time.Second)
		fallback := edinet.NewV1Client(2 * time.Second)
		index := edinet.NewDocumentIndex(client, fallback, time.Hour, edinet.NewAliasTable())

		count, err := index.BuildIndex(ctx, buildIndexDaysBack)
		if err != nil {
			log.Fatal().Err(err).Msg("could not build disclosure index")
		}

		log.Info().Int("NumDescriptors", count).Int("DaysBack", buildIndexDaysBack).
			Str("Runtime", durafmt.Parse(time.Since(start)).LimitFirstN(2).String()).
			Msg("disclosure index built")
	},
}

func init() {
	rootCmd.AddCommand(buildIndexCmd)
	buildIndexCmd.Flags().IntVar(&buildIndexDaysBack, "days-back", 7, "number of business days to index")
}
