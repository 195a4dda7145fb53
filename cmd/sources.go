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
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type dataSource struct {
	Name        string
	Description string
	Endpoint    string
	ConfigKey   string
}

// dataSources enumerates the external services this tool reads from. The
// ConfigKey is the viper key that must be set before the source is usable;
// an empty key means no credential is required.
var dataSources = map[string]dataSource{
	"edinet": {
		Name:        "EDINET v2",
		Description: "Financial disclosure documents from Japan's Electronic Disclosure for Investors' NETwork. Requires a subscription key issued by the FSA.",
		Endpoint:    "https://api.edinet-fsa.go.jp/api/v2",
		ConfigKey:   "edinet.subscription_key",
	},
	"edinet-v1": {
		Name:        "EDINET v1 (fallback)",
		Description: "Legacy disclosure endpoint used only when the v2 API returns server errors. No key required.",
		Endpoint:    "https://disclosure.edinet-fsa.go.jp/api/v1",
	},
	"jpx-margin": {
		Name:        "JPX weekly margin report",
		Description: "Weekly outstanding margin-trading positions published by the Japan Exchange Group as a PDF. No key required.",
		Endpoint:    "https://www.jpx.co.jp/markets/statistics-equities/margin/",
	},
	"gemini": {
		Name:        "Google Gemini",
		Description: "Generative model used for the expert synthesis layer of the filing analysis. Requires an API key.",
		Endpoint:    "https://generativelanguage.googleapis.com",
		ConfigKey:   "gemini.apikey",
	},
}

// sourcesCmd represents the sources command
var sourcesCmd = &cobra.Command{
	Use:   "sources <name>",
	Short: "List all data sources available or get details about a specific source",
	Run: func(cmd *cobra.Command, args []string) {

		r, _ := glamour.NewTermRenderer(
			// detect background color and pick either the default dark or light theme
			glamour.WithAutoStyle(),
			// wrap output at specific width (default is 80)
			glamour.WithWordWrap(80),
		)

		builder := strings.Builder{}

		if len(args) > 0 {
			if source, ok := dataSources[args[0]]; ok {
				builder.WriteString(fmt.Sprintf("# %s\n", source.Name))
				builder.WriteString(source.Description)
				builder.WriteString(fmt.Sprintf("\n\n- Endpoint: %s\n", source.Endpoint))
				if source.ConfigKey != "" {
					builder.WriteString(fmt.Sprintf("- Credential: `%s` (%s)\n", source.ConfigKey, credentialState(source.ConfigKey)))
				}
			}
		} else {
			builder.WriteString("# Available Sources\n")
			for _, source := range dataSources {
				builder.WriteString(fmt.Sprintf("\n## %s\n", source.Name))
				builder.WriteString(source.Description)
				if source.ConfigKey != "" {
					builder.WriteString(fmt.Sprintf("\n\nCredential `%s` is %s.\n", source.ConfigKey, credentialState(source.ConfigKey)))
				}
			}
		}

		out, err := r.Render(builder.String())
		if err != nil {
			log.Fatal().Err(err).Msg("could not render source document")
		}

		fmt.Print(out)
	},
}

func credentialState(key string) string {
	if viper.GetString(key) == "" {
		return "not configured"
	}

	return "configured"
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
