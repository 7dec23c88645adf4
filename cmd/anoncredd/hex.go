// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package main

import (
	"encoding/hex"
	"net/http"
)

func encodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

// decodeHexInto decodes src into dst, writing a malformed_request response
// and returning false on any length or encoding mismatch.
func decodeHexInto(w http.ResponseWriter, src string, dst []byte) bool {
	decoded, err := hex.DecodeString(src)
	if err != nil || len(decoded) != len(dst) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed_request"})
		return false
	}

	copy(dst, decoded)

	return true
}
