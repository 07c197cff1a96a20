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

package shared

import (
	"github.com/spf13/pflag"

	"github.com/tombee/fetchkit/pkg/storage"
)

// Global flag values - set by root command
var (
	verboseFlag bool
	quietFlag   bool
	jsonFlag    bool
	configFlag  string
	metricsFlag bool

	// Build-time version information
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// Flags holds pointers to the global flag variables.
type Flags struct {
	Verbose *bool
	Quiet   *bool
	JSON    *bool
	Config  *string
	Metrics *bool
}

// RegisterFlagPointers returns pointers to flag variables for binding.
// Called by root command to register flags.
func RegisterFlagPointers() Flags {
	return Flags{
		Verbose: &verboseFlag,
		Quiet:   &quietFlag,
		JSON:    &jsonFlag,
		Config:  &configFlag,
		Metrics: &metricsFlag,
	}
}

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verboseFlag
}

// GetQuiet returns the quiet flag value
func GetQuiet() bool {
	return quietFlag
}

// GetJSON returns the JSON output flag value
func GetJSON() bool {
	return jsonFlag
}

// GetConfigPath returns the config file path
func GetConfigPath() string {
	return configFlag
}

// GetMetrics returns whether request metrics are printed after a command.
func GetMetrics() bool {
	return metricsFlag
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return version, commit, buildDate
}

// SetConfigPathForTest sets the config path for testing purposes
func SetConfigPathForTest(path string) {
	configFlag = path
}

// ResetFlagsForTest restores every global flag to its zero value.
func ResetFlagsForTest() {
	verboseFlag, quietFlag, jsonFlag, metricsFlag = false, false, false, false
	configFlag = ""
}

// StorageFlag is a --storage value checked against the known engine kinds
// when parsed. Empty means the configured default.
type StorageFlag struct {
	kind string
}

var _ pflag.Value = (*StorageFlag)(nil)

// AddStorageFlag registers --storage on fs.
func AddStorageFlag(fs *pflag.FlagSet, usage string) *StorageFlag {
	f := &StorageFlag{}
	fs.Var(f, "storage", usage)
	return f
}

func (f *StorageFlag) String() string { return f.kind }

func (f *StorageFlag) Set(s string) error {
	k, err := storage.ParseKind(s)
	if err != nil {
		return err
	}
	f.kind = string(k)
	return nil
}

func (f *StorageFlag) Type() string { return "kind" }
