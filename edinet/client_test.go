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
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Client", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
	)

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
		DeferCleanup(server.Close)
	})

	newTestClient := func(apiKey string) *Client {
		return newClient(server.URL, apiKey, time.Millisecond)
	}

	Describe("ListDocuments", func() {
		It("decodes the v2 envelope and forwards the subscription key", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/documents.json"))
				Expect(r.URL.Query().Get("date")).To(Equal("2025-06-02"))
				Expect(r.URL.Query().Get("type")).To(Equal("2"))
				Expect(r.URL.Query().Get("Subscription-Key")).To(Equal("secret"))
				Expect(r.Header.Get("Ocp-Apim-Subscription-Key")).To(Equal("secret"))

				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{
					"metadata": {"status": "200", "message": "OK"},
					"results": [{
						"docID": "S100ABCD",
						"edinetCode": "E02144",
						"secCode": "72030",
						"filerName": "トヨタ自動車株式会社",
						"docTypeCode": "120",
						"submitDateTime": "2025-06-02 09:30",
						"xbrlFlag": "1",
						"pdfFlag": "1",
						"csvFlag": "0"
					}]
				}`))
			}

			client := newTestClient("secret")
			descriptors, err := client.ListDocuments(context.Background(), time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC))
			Expect(err).NotTo(HaveOccurred())
			Expect(descriptors).To(HaveLen(1))
			Expect(descriptors[0].DocumentID).To(Equal("S100ABCD"))
			Expect(descriptors[0].SecCode).To(Equal("72030"))
			Expect(descriptors[0].XbrlFlag).To(BeTrue())
			Expect(descriptors[0].CsvFlag).To(BeFalse())
			Expect(descriptors[0].SubmitDateTime.Hour()).To(Equal(9))
		})

		It("decodes the bare v1 shape", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"results": [{"document_id": "S100OLD1", "docTypeCode": "350", "submission_date": "2025-06-02"}]}`))
			}

			client := newTestClient("")
			descriptors, err := client.ListDocuments(context.Background(), time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(descriptors).To(HaveLen(1))
			Expect(descriptors[0].DocumentID).To(Equal("S100OLD1"))
		})

		It("maps HTTP 401 to the auth error", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}

			_, err := newTestClient("bad").ListDocuments(context.Background(), time.Now())
			Expect(err).To(MatchError(ErrAuth))
		})

		It("maps HTML error pages to the auth error", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("<html><body>Access Denied</body></html>"))
			}

			_, err := newTestClient("bad").ListDocuments(context.Background(), time.Now())
			Expect(err).To(MatchError(ErrAuth))
		})

		It("maps an in-band 401 envelope to the auth error", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"statusCode": 401, "message": "invalid key"}`))
			}

			_, err := newTestClient("bad").ListDocuments(context.Background(), time.Now())
			Expect(err).To(MatchError(ErrAuth))
		})

		It("surfaces other in-band failures as remote errors", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"statusCode": 404, "message": "no documents"}`))
			}

			_, err := newTestClient("key").ListDocuments(context.Background(), time.Now())

			var remoteError *RemoteError
			Expect(errors.As(err, &remoteError)).To(BeTrue())
			Expect(remoteError.Code).To(Equal(404))
		})

		It("treats an empty result list as a valid listing", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"metadata": {"status": "200"}, "results": []}`))
			}

			descriptors, err := newTestClient("key").ListDocuments(context.Background(), time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(descriptors).To(BeEmpty())
		})
	})

	Describe("FetchDocument", func() {
		It("downloads the raw body for the requested type", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/documents/S100ABCD"))
				Expect(r.URL.Query().Get("type")).To(Equal("1"))
				_, _ = w.Write([]byte("zipbytes"))
			}

			body, err := newTestClient("key").FetchDocument(context.Background(), "S100ABCD", DocTypeXBRL)
			Expect(err).NotTo(HaveOccurred())
			Expect(body).To(Equal([]byte("zipbytes")))
		})

		It("rejects the CSV document type locally", func() {
			handlerCalled := false
			handler = func(http.ResponseWriter, *http.Request) { handlerCalled = true }

			_, err := newTestClient("key").FetchDocument(context.Background(), "S100ABCD", DocTypeCSV)

			var remoteError *RemoteError
			Expect(errors.As(err, &remoteError)).To(BeTrue())
			Expect(remoteError.Code).To(Equal(400))
			Expect(handlerCalled).To(BeFalse())
		})

		It("surfaces missing documents as remote errors", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}

			_, err := newTestClient("key").FetchDocument(context.Background(), "S100NONE", DocTypeXBRL)

			var remoteError *RemoteError
			Expect(errors.As(err, &remoteError)).To(BeTrue())
			Expect(remoteError.Code).To(Equal(404))
		})
	})
})
