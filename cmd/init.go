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
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/jackc/pgx/v5"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tokyoquant/edinetdata/db"
	"github.com/tokyoquant/edinetdata/healthcheck"
)

type initSettings struct {
	DB struct {
		URL string `toml:"url"`
	} `toml:"db"`
	Edinet struct {
		SubscriptionKey string `toml:"subscription_key"`
	} `toml:"edinet"`
	Gemini struct {
		APIKey string `toml:"apikey"`
		Model  string `toml:"model"`
	} `toml:"gemini"`
	Backblaze struct {
		ApplicationID  string `toml:"application_id"`
		ApplicationKey string `toml:"application_key"`
		Bucket         string `toml:"bucket"`
	} `toml:"backblaze"`
	Healthchecks struct {
		APIKey   string `toml:"apikey"`
		MarginID string `toml:"margin_id"`
	} `toml:"healthchecks"`
}

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Gather database configuration and setup schema",
	Run: func(cmd *cobra.Command, args []string) {
		settings := initSettings{}
		settings.Gemini.Model = "gemini-2.0-flash"

		form := huh.NewForm(
			// Get details about the database
			huh.NewGroup(
				huh.NewInput().
					Title("Provide the DSN for connecting to your PostgreSQL database (postgres://[user[:password]@][netloc][:port][/dbname][?param1=value1&...])").
					Value(&settings.DB.URL).
					Validate(func(dsn string) error {
						_, err := pgx.ParseConfig(dsn)
						return err
					}),
			),

			// Gather API credentials; all of these are optional
			huh.NewGroup(
				huh.NewInput().
					Title("EDINET API subscription key (leave blank to use the v1 API without a key):").
					Value(&settings.Edinet.SubscriptionKey),

				huh.NewInput().
					Title("Gemini API key for AI expert analysis (leave blank to disable):").
					Value(&settings.Gemini.APIKey),
			),

			// Backblaze archival settings
			huh.NewGroup(
				huh.NewInput().
					Title("Backblaze application ID (leave blank to disable archival):").
					Value(&settings.Backblaze.ApplicationID),

				huh.NewInput().
					Title("Backblaze application key:").
					Value(&settings.Backblaze.ApplicationKey),

				huh.NewInput().
					Title("Backblaze bucket name:").
					Value(&settings.Backblaze.Bucket),
			),

			// Monitoring
			huh.NewGroup(
				huh.NewInput().
					Title("healthchecks.io API key (leave blank to disable monitoring):").
					Value(&settings.Healthchecks.APIKey),
			),
		)

		err := form.Run()
		if err != nil {
			log.Fatal().Err(err).Msg("error gathering settings")
		}

		log.Info().Msg("creating database tables")

		// run migration
		dbURL := strings.Replace(settings.DB.URL, "postgres://", "pgx5://", -1)
		err = db.Migrate(dbURL)
		if err != nil {
			log.Fatal().Err(err).Msg("error running database migration")
		}

		log.Info().Msg("database tables created")

		if settings.Healthchecks.APIKey != "" {
			viper.Set("healthchecks.apikey", settings.Healthchecks.APIKey)
			// JPX publishes the weekly report on Tuesday afternoon JST
			checkID, err := healthcheck.Create("JPX margin ingestion", "edinetdata-margin",
				[]string{"edinetdata", "margin"}, "0 18 * * 2")
			if err != nil {
				log.Error().Err(err).Msg("could not register margin health check")
			} else {
				settings.Healthchecks.MarginID = checkID
				log.Info().Str("CheckID", checkID).Msg("registered margin health check")
			}
		}

		// save settings to config file
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal().Err(err).Msg("could not determine user home directory")
		}

		configFN := filepath.Join(home, ".edinetdata.toml")
		log.Info().Str("ConfigFile", configFN).Msg("Saving settings to config file")
		configData, err := toml.Marshal(settings)
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal configuration data")
		}

		err = os.WriteFile(configFN, configData, 0644)
		if err != nil {
			log.Fatal().Err(err).Str("FileName", configFN).Msg("could not save configuration to file")
		}

		log.Info().Msg("Your data library has been initialized")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
