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
	"time"

	"github.com/rs/zerolog"
)

// Descriptor is the normalized shape of a single disclosure document listing.
// Both the v1 and v2 endpoints are decoded into this one record.
type Descriptor struct {
	DocumentID       string
	EdinetCode       string
	SecCode          string
	FilerName        string
	DocDescription   string
	DocTypeCode      string
	SubmitDateTime   time.Time
	XbrlFlag         bool
	PdfFlag          bool
	CsvFlag          bool
	LegalStatus      string
	WithdrawalStatus string
}

func (descriptor *Descriptor) MarshalZerologObject(e *zerolog.Event) {
	e.Str("DocumentID", descriptor.DocumentID).
		Str("FilerName", descriptor.FilerName).
		Str("DocTypeCode", descriptor.DocTypeCode).
		Time("SubmitDateTime", descriptor.SubmitDateTime)
}

// earningsDocTypes are the document type codes that carry earnings content:
// 120 annual securities report, 130 amended report, 140 quarterly report,
// 350 earnings summary
var earningsDocTypes = map[string]bool{
	"120": true,
	"130": true,
	"140": true,
	"350": true,
}

// IsEarningsRelated reports whether the descriptor's document type carries
// earnings content
func (descriptor *Descriptor) IsEarningsRelated() bool {
	return earningsDocTypes[descriptor.DocTypeCode]
}

// DocTypePriority orders document types for selection; lower is better
func DocTypePriority(docTypeCode string) int {
	switch docTypeCode {
	case "120":
		return 0
	case "130":
		return 1
	case "140":
		return 2
	case "350":
		return 3
	}
	return 99
}

// rawDescriptor accepts both the v2 field names (docID, submitDateTime) and
// the older v1 names (document_id, submission_date)
type rawDescriptor struct {
	DocID            string `json:"docID"`
	DocumentID       string `json:"document_id"`
	EdinetCode       string `json:"edinetCode"`
	SecCode          string `json:"secCode"`
	FilerName        string `json:"filerName"`
	DocDescription   string `json:"docDescription"`
	DocTypeCode      string `json:"docTypeCode"`
	SubmitDateTime   string `json:"submitDateTime"`
	SubmissionDate   string `json:"submission_date"`
	XbrlFlag         string `json:"xbrlFlag"`
	PdfFlag          string `json:"pdfFlag"`
	CsvFlag          string `json:"csvFlag"`
	LegalStatus      string `json:"legalStatus"`
	WithdrawalStatus string `json:"withdrawalStatus"`
}

var submitTimeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

func (raw *rawDescriptor) normalize() *Descriptor {
	descriptor := &Descriptor{
		DocumentID:       raw.DocID,
		EdinetCode:       raw.EdinetCode,
		SecCode:          raw.SecCode,
		FilerName:        raw.FilerName,
		DocDescription:   raw.DocDescription,
		DocTypeCode:      raw.DocTypeCode,
		XbrlFlag:         raw.XbrlFlag == "1",
		PdfFlag:          raw.PdfFlag == "1",
		CsvFlag:          raw.CsvFlag == "1",
		LegalStatus:      raw.LegalStatus,
		WithdrawalStatus: raw.WithdrawalStatus,
	}

	if descriptor.DocumentID == "" {
		descriptor.DocumentID = raw.DocumentID
	}

	submitted := raw.SubmitDateTime
	if submitted == "" {
		submitted = raw.SubmissionDate
	}

	for _, layout := range submitTimeLayouts {
		if when, err := time.Parse(layout, submitted); err == nil {
			descriptor.SubmitDateTime = when
			break
		}
	}

	return descriptor
}
