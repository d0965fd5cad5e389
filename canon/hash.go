// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package canon

import (
	"encoding/hex"

	"github.com/go-crypt/x/blake2b"
)

// HashSize is the width of a content hash in bytes.
const HashSize = 32

// Hash is a fixed-width digest of canonicalized text, used to detect
// unchanged content across indexing runs.
type Hash [HashSize]byte

// ContentHash computes the BLAKE2b-256 digest of text.
// For stable hashing, always canonicalize the text first.
func ContentHash(text string) Hash {
	h, _ := blake2b.New(HashSize, nil)
	h.Write([]byte(text))
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// ContentHashHex computes the content hash and returns it hex-encoded.
func ContentHashHex(text string) string {
	h := ContentHash(text)
	return hex.EncodeToString(h[:])
}
