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
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	V2BaseURL = "https://api.edinet-fsa.go.jp/api/v2"
	V1BaseURL = "https://disclosure.edinet-fsa.go.jp/api/v1"

	userAgent = "edinetdata/1.0"

	// DocTypeXBRL selects the XBRL zip bundle from the document fetch
	// endpoint; the remaining type codes return PDF, attachments, the
	// english rendition, and CSV respectively
	DocTypeXBRL    = 1
	DocTypePDF     = 2
	DocTypeAttach  = 3
	DocTypeEnglish = 4
	DocTypeCSV     = 5
)

// ErrAuth indicates the subscription key was rejected. The authority answers
// misconfigured keys with an HTML error page rather than a JSON envelope, so
// a non-JSON body maps here as well.
var ErrAuth = errors.New("edinet authentication failed")

// RemoteError carries the status code and message of a failed remote call
type RemoteError struct {
	Code    int
	Message string
}

func (remoteError *RemoteError) Error() string {
	return fmt.Sprintf("edinet remote error %d: %s", remoteError.Code, remoteError.Message)
}

// Client issues rate-limited requests against one version of the disclosure
// API. Requests are spaced by a minimum interval; when multiple goroutines
// share a client the limiter serializes them. The client never retries --
// fallback to the v1 endpoint is the document index's decision.
type Client struct {
	baseURL string
	apiKey  string

	resty   *resty.Client
	limiter *rate.Limiter
}

// NewClient returns a v2 client authenticated with the given subscription key
func NewClient(apiKey string, minInterval time.Duration) *Client {
	return newClient(V2BaseURL, apiKey, minInterval)
}

// NewV1Client returns a fallback client against the keyless v1 endpoint
func NewV1Client(minInterval time.Duration) *Client {
	return newClient(V1BaseURL, "", minInterval)
}

func newClient(baseURL string, apiKey string, minInterval time.Duration) *Client {
	if minInterval <= 0 {
		minInterval = 2 * time.Second
	}

	restyClient := resty.New().
		SetHeader("User-Agent", userAgent).
		SetTimeout(120 * time.Second)

	if apiKey != "" {
		restyClient = restyClient.
			SetQueryParam("Subscription-Key", apiKey).
			SetHeader("Ocp-Apim-Subscription-Key", apiKey)
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		resty:   restyClient,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// listEnvelope accepts the v2 envelope ({metadata:{status}, results:[...]}),
// the bare v1 shape ({results:[...]}), and the error shape
// ({statusCode, message})
type listEnvelope struct {
	Metadata struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"metadata"`
	Results    []*rawDescriptor `json:"results"`
	StatusCode int              `json:"statusCode"`
	Message    string           `json:"message"`
}

// ListDocuments returns the normalized descriptors for every document
// submitted on the given date
func (client *Client) ListDocuments(ctx context.Context, date time.Time) ([]*Descriptor, error) {
	logger := zerolog.Ctx(ctx)

	if err := client.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := client.resty.R().
		SetContext(ctx).
		SetQueryParam("date", date.Format("2006-01-02")).
		SetQueryParam("type", "2").
		Get(client.baseURL + "/documents.json")
	if err != nil {
		return nil, fmt.Errorf("edinet document listing failed: %w", err)
	}

	if resp.StatusCode() == 401 {
		return nil, ErrAuth
	}

	body := resp.Body()
	if looksLikeHTML(body) {
		logger.Error().Str("Component", "DisclosureClient").Str("Kind", "AuthError").
			Str("Date", date.Format("2006-01-02")).Msg("edinet returned an HTML page; subscription key likely invalid")
		return nil, ErrAuth
	}

	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &RemoteError{Code: resp.StatusCode(), Message: fmt.Sprintf("malformed listing body: %v", err)}
	}

	if envelope.StatusCode != 0 && envelope.StatusCode != 200 {
		if envelope.StatusCode == 401 {
			return nil, ErrAuth
		}

		return nil, &RemoteError{Code: envelope.StatusCode, Message: envelope.Message}
	}

	if resp.StatusCode() >= 300 {
		return nil, &RemoteError{Code: resp.StatusCode(), Message: envelope.Message}
	}

	descriptors := make([]*Descriptor, 0, len(envelope.Results))
	for _, raw := range envelope.Results {
		descriptors = append(descriptors, raw.normalize())
	}

	logger.Debug().Str("Date", date.Format("2006-01-02")).Int("NumDocuments", len(descriptors)).
		Msg("fetched edinet document listing")

	return descriptors, nil
}

// FetchDocument downloads the raw document body for the given document id.
// CSV bundles are rejected; the analysis pipeline only consumes the XBRL zip
// and PDF renditions.
func (client *Client) FetchDocument(ctx context.Context, documentID string, typeCode int) ([]byte, error) {
	if typeCode == DocTypeCSV {
		return nil, &RemoteError{Code: 400, Message: "csv document type is not supported"}
	}

	if err := client.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := client.resty.R().
		SetContext(ctx).
		SetQueryParam("type", fmt.Sprintf("%d", typeCode)).
		Get(fmt.Sprintf("%s/documents/%s", client.baseURL, documentID))
	if err != nil {
		return nil, fmt.Errorf("edinet document fetch failed: %w", err)
	}

	if resp.StatusCode() == 401 {
		return nil, ErrAuth
	}

	if resp.StatusCode() >= 300 {
		return nil, &RemoteError{Code: resp.StatusCode(), Message: fmt.Sprintf("document %s unavailable", documentID)}
	}

	return resp.Body(), nil
}

func looksLikeHTML(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "<")
}
