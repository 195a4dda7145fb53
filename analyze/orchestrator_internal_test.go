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
package analyze

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tokyoquant/edinetdata/edinet"
)

var _ = Describe("failure classification", func() {
	It("labels credential failures as auth errors", func() {
		Expect(remoteKind(edinet.ErrAuth)).To(Equal("AuthError"))
	})

	It("recognizes a wrapped auth error", func() {
		err := fmt.Errorf("listing 2025-06-02: %w", edinet.ErrAuth)
		Expect(remoteKind(err)).To(Equal("AuthError"))
	})

	It("labels everything else as a remote error", func() {
		Expect(remoteKind(errors.New("backend unavailable"))).To(Equal("RemoteError"))
		Expect(remoteKind(&edinet.RemoteError{Code: 500, Message: "down"})).To(Equal("RemoteError"))
	})
})
