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
package margin

import (
	"github.com/rs/zerolog/log"
	"github.com/tokyoquant/edinetdata/data"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// SnapshotRecord is the parquet layout of one margin snapshot
type SnapshotRecord struct {
	Ticker           string `parquet:"name=ticker, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ReportDate       string `parquet:"name=report_date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	SellOutstanding  int64  `parquet:"name=sell_outstanding, type=INT64"`
	SellDelta        int64  `parquet:"name=sell_delta, type=INT64"`
	BuyOutstanding   int64  `parquet:"name=buy_outstanding, type=INT64"`
	BuyDelta         int64  `parquet:"name=buy_delta, type=INT64"`
	NegotiableSell   int64  `parquet:"name=negotiable_sell, type=INT64"`
	NegotiableBuy    int64  `parquet:"name=negotiable_buy, type=INT64"`
	StandardizedSell int64  `parquet:"name=standardized_sell, type=INT64"`
	StandardizedBuy  int64  `parquet:"name=standardized_buy, type=INT64"`
}

// SaveToParquet writes a snapshot batch to the given parquet file
func SaveToParquet(snapshots []*data.MarginSnapshot, fn string) error {
	fh, err := local.NewLocalFileWriter(fn)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("cannot create local file")
		return err
	}
	defer fh.Close()

	pw, err := writer.NewParquetWriter(fh, new(SnapshotRecord), 4)
	if err != nil {
		log.Error().
			Str("OriginalError", err.Error()).
			Msg("Parquet write failed")
		return err
	}

	pw.RowGroupSize = 128 * 1024 * 1024 // 128M
	pw.PageSize = 8 * 1024              // 8k
	pw.CompressionType = parquet.CompressionCodec_ZSTD

	for _, snapshot := range snapshots {
		record := &SnapshotRecord{
			Ticker:           snapshot.Ticker,
			ReportDate:       snapshot.ReportDate.Format("2006-01-02"),
			SellOutstanding:  snapshot.SellOutstanding,
			SellDelta:        snapshot.SellDelta,
			BuyOutstanding:   snapshot.BuyOutstanding,
			BuyDelta:         snapshot.BuyDelta,
			NegotiableSell:   snapshot.NegotiableSell,
			NegotiableBuy:    snapshot.NegotiableBuy,
			StandardizedSell: snapshot.StandardizedSell,
			StandardizedBuy:  snapshot.StandardizedBuy,
		}

		if err = pw.Write(record); err != nil {
			log.Error().
				Str("OriginalError", err.Error()).
				Str("Ticker", snapshot.Ticker).
				Msg("Parquet write failed for record")
		}
	}

	if err = pw.WriteStop(); err != nil {
		log.Error().Err(err).Msg("Parquet write failed")
		return err
	}

	log.Info().Int("NumRecords", len(snapshots)).Msg("Parquet write finished")
	return nil
}
