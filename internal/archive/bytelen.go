/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package archive

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// Encode returns the exact bytes stored for text. Ill-formed UTF-8 is replaced with U+FFFD.
func Encode(text string) []byte {
	if utf8.ValidString(text) {
		return []byte(text)
	}
	out, err := unicode.UTF8.NewEncoder().String(text)
	if err != nil {
		// The replacing encoder does not fail on ill-formed input; keep the raw bytes regardless.
		return []byte(text)
	}
	return []byte(out)
}

// ByteLength is the size of the entry written for text, i.e. its UTF-8 encoded length.
// Multi-byte characters count every byte, so a buffer of this size is never truncated or padded.
func ByteLength(text string) int {
	if utf8.ValidString(text) {
		return len(text)
	}
	return len(Encode(text))
}
