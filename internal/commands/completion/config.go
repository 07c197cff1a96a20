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
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/fetchkit/internal/commands/shared"
	"github.com/tombee/fetchkit/internal/config"
	"github.com/tombee/fetchkit/pkg/storage"
)

// keyTimeout bounds the storage lookup behind a completion.
const keyTimeout = 2 * time.Second

// CheckFilePermissions verifies that a file has secure permissions (mode <= 0600).
// Returns true if permissions are acceptable, false if too permissive.
func CheckFilePermissions(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		// Missing files are handled by the loader.
		return true
	}
	return info.Mode().Perm()&^0600 == 0
}

// LoadConfigForCompletion loads the configuration the way commands do,
// skipping config files readable by other users. A nil config with a nil
// error means completion should be skipped.
func LoadConfigForCompletion() (*config.Config, error) {
	path := config.ResolvePath(shared.GetConfigPath())
	if path != "" && !CheckFilePermissions(path) {
		return nil, nil
	}
	return config.Load(path)
}

// CompleteStoredIDs returns a completion function listing the ids stored in
// the engine chosen by the command's --storage flag. Keys are matched on
// suffix, which is trimmed from each id. Only engines that can list their
// keys complete anything.
func CompleteStoredIDs(suffix string) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}

			cfg, err := LoadConfigForCompletion()
			if err != nil || cfg == nil {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}

			kind := cfg.Storage.Kind
			if f := cmd.Flag("storage"); f != nil && f.Value.String() != "" {
				kind = f.Value.String()
			}
			k, err := storage.ParseKind(kind)
			if err != nil {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}

			factory := storage.NewFactory(cfg.StorageFactoryConfig())
			defer factory.Close()

			engine, err := factory.Engine(k)
			if err != nil {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			lister, ok := engine.(interface {
				Keys(ctx context.Context) ([]string, error)
			})
			if !ok {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}

			ctx, cancel := context.WithTimeout(context.Background(), keyTimeout)
			defer cancel()
			keys, err := lister.Keys(ctx)
			if err != nil {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}

			var ids []string
			for _, key := range keys {
				if id, ok := strings.CutSuffix(key, suffix); ok && id != "" && strings.HasPrefix(id, toComplete) {
					ids = append(ids, id)
				}
			}
			sort.Strings(ids)
			return ids, cobra.ShellCompDirectiveNoFileComp
		})
	}
}

// SafeCompletionWrapper wraps a completion function with panic recovery.
// Returns empty completion list on panic or error.
func SafeCompletionWrapper(fn func() ([]string, cobra.ShellCompDirective)) (results []string, directive cobra.ShellCompDirective) {
	results = []string{}
	directive = cobra.ShellCompDirectiveNoFileComp

	defer func() {
		if r := recover(); r != nil {
			results = []string{}
			directive = cobra.ShellCompDirectiveNoFileComp
		}
	}()

	results, directive = fn()
	if results == nil {
		return []string{}, cobra.ShellCompDirectiveNoFileComp
	}
	return results, directive
}
