/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"testing"

	"github.com/zalando/go-keyring"
)

func TestTelemetryTokenRoundTrip(t *testing.T) {
	keyring.MockInit()

	if tok, err := TelemetryToken(); err != nil || tok != "" {
		t.Fatalf("empty keyring: %q, %v", tok, err)
	}
	if err := SetTelemetryToken("  s3cret "); err != nil {
		t.Fatalf("SetTelemetryToken: %v", err)
	}
	if tok, err := TelemetryToken(); err != nil || tok != "s3cret" {
		t.Fatalf("TelemetryToken = %q, %v", tok, err)
	}
	if err := SetTelemetryToken(""); err != nil {
		t.Fatalf("clearing token: %v", err)
	}
	if err := SetTelemetryToken(""); err != nil {
		t.Fatalf("clearing twice should not fail: %v", err)
	}
	if tok, _ := TelemetryToken(); tok != "" {
		t.Fatalf("token still present: %q", tok)
	}
}
