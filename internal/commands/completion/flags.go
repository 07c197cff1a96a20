// Copyright 2025 Tom Barlow
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


package completion

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/fetchkit/pkg/storage"
)

var kindDescriptions = map[storage.Kind]string{
	storage.KindFile:        "One file per value, sealed when a master key is set",
	storage.KindKeychain:    "System keychain (macOS/Linux)",
	storage.KindPreferences: "Local SQLite preferences database",
	storage.KindMemory:      "In-process only, gone when the command exits",
}

// CompleteStorageKinds provides completion for --storage flag values.
func CompleteStorageKinds(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		var kinds []string
		for _, k := range storage.Kinds() {
			kinds = append(kinds, string(k)+"\t"+kindDescriptions[k])
		}
		return kinds, cobra.ShellCompDirectiveNoFileComp
	})
}

var commonStatusCodes = []int{
	http.StatusOK,
	http.StatusCreated,
	http.StatusAccepted,
	http.StatusNoContent,
	http.StatusMovedPermanently,
	http.StatusNotModified,
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusServiceUnavailable,
}

// CompleteStatusCodes provides completion for --expect flag values. Codes
// already listed in a comma separated value are completed after the comma.
func CompleteStatusCodes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		prefix := ""
		if i := strings.LastIndex(toComplete, ","); i >= 0 {
			prefix = toComplete[:i+1]
		}

		codes := make([]string, 0, len(commonStatusCodes))
		for _, code := range commonStatusCodes {
			codes = append(codes, prefix+strconv.Itoa(code)+"\t"+http.StatusText(code))
		}
		return codes, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
	})
}
