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
package data

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type IngestionStatus string

const (
	IngestionProcessing IngestionStatus = "processing"
	IngestionSuccess    IngestionStatus = "success"
	IngestionFailed     IngestionStatus = "failed"
	IngestionSkipped    IngestionStatus = "skipped"
)

// IngestionLog records one batch run. Rows are append-only apart from the
// status progression processing -> success|failed.
type IngestionLog struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	TargetDate   time.Time       `db:"target_date" json:"target_date"`
	Status       IngestionStatus `db:"status" json:"status"`
	Message      string          `db:"message" json:"message"`
	RecordsCount int             `db:"records_count" json:"records_count"`
	SourceURL    string          `db:"source_url" json:"source_url"`
	CreatedOn    time.Time       `db:"created_on" json:"created_on"`
}

// NewIngestionLog opens a run log in the processing state.
func NewIngestionLog(targetDate time.Time, sourceURL string) *IngestionLog {
	return &IngestionLog{
		ID:         uuid.New(),
		TargetDate: targetDate,
		Status:     IngestionProcessing,
		SourceURL:  sourceURL,
		CreatedOn:  time.Now(),
	}
}

// Finish progresses the run log to its terminal status.
func (entry *IngestionLog) Finish(status IngestionStatus, message string, records int) {
	entry.Status = status
	entry.Message = message
	entry.RecordsCount = records
}

func (entry *IngestionLog) SaveDB(ctx context.Context, dbConn *pgxpool.Conn) error {
	sql := `INSERT INTO ingestion_logs (
		"id",
		"target_date",
		"status",
		"message",
		"records_count",
		"source_url",
		"created_on"
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7
	) ON CONFLICT ON CONSTRAINT ingestion_logs_pkey DO UPDATE SET
		status = EXCLUDED.status,
		message = EXCLUDED.message,
		records_count = EXCLUDED.records_count`

	_, err := dbConn.Exec(ctx, sql, entry.ID, entry.TargetDate, entry.Status,
		entry.Message, entry.RecordsCount, entry.SourceURL, entry.CreatedOn)
	if err != nil {
		log.Error().Err(err).Str("ID", entry.ID.String()).Msg("save ingestion log to DB failed")
	}

	return err
}
