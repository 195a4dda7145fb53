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
package healthcheck

import (
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

func ping(id string, suffix string) {
	client := resty.New()
	url := fmt.Sprintf("https://hc-ping.com/%s%s", id, suffix)

	resp, err := client.R().Get(url)
	if err != nil {
		log.Warn().Err(err).Str("URL", url).Msg("health check ping failed")
		return
	}

	if resp.StatusCode() != 200 {
		log.Warn().Int("StatusCode", resp.StatusCode()).Str("URL", url).Msg("health check ping rejected")
	}
}

// PingStart signals the beginning of a monitored run
func PingStart(id string) {
	ping(id, "/start")
}

// PingSuccess signals a successful run
func PingSuccess(id string) {
	ping(id, "")
}

// PingFail signals a failed run
func PingFail(id string) {
	ping(id, "/fail")
}
