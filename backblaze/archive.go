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
package backblaze

import (
	"bytes"
	"context"
	"fmt"

	"github.com/kothar/go-backblaze"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// ArchiveStore uploads raw fetched documents (XBRL zips, PDFs) to a bucket.
// The zero value is not usable; call NewArchiveStore.
type ArchiveStore struct {
	bucketName string
}

// NewArchiveStore returns a store for the named bucket, or nil when
// backblaze credentials are not configured
func NewArchiveStore(bucketName string) *ArchiveStore {
	if viper.GetString("backblaze.application_id") == "" || bucketName == "" {
		return nil
	}

	return &ArchiveStore{bucketName: bucketName}
}

// StoreArchive uploads a raw document body under the given name
func (store *ArchiveStore) StoreArchive(_ context.Context, name string, body []byte) error {
	b2, err := backblaze.NewB2(backblaze.Credentials{
		KeyID:          viper.GetString("backblaze.application_id"),
		ApplicationKey: viper.GetString("backblaze.application_key"),
	})
	if err != nil {
		log.Error().Err(err).Str("BucketName", store.bucketName).Msg("authorize backblaze failed")
		return err
	}

	bucket, err := b2.Bucket(store.bucketName)
	if err != nil || bucket == nil {
		log.Error().Err(err).Str("BucketName", store.bucketName).Msg("lookup bucket failed")
		return fmt.Errorf("bucket %s not found", store.bucketName)
	}

	file, err := bucket.UploadFile(name, map[string]string{}, bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Str("FileName", name).Str("BucketName", store.bucketName).Msg("save file to backblaze failed")
		return err
	}

	log.Info().Str("FileName", file.Name).Int64("Size", file.ContentLength).Str("ID", file.ID).Msg("uploaded file to backblaze")
	return nil
}
