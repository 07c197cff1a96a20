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

// Package store implements the store command group, which saves, restores
// and clears named values through the storage engines.
package store

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/fetchkit/internal/commands/completion"
	"github.com/tombee/fetchkit/internal/commands/shared"
	"github.com/tombee/fetchkit/pkg/storage"
)

// Entry is a stored value.
type Entry struct {
	Value   string    `json:"value"`
	SavedAt time.Time `json:"saved_at"`
}

type entryResponse struct {
	shared.JSONResponse
	ID      string     `json:"id"`
	Found   bool       `json:"found"`
	Value   string     `json:"value,omitempty"`
	SavedAt *time.Time `json:"saved_at,omitempty"`
}

type keysResponse struct {
	shared.JSONResponse
	Engine string   `json:"engine"`
	IDs    []string `json:"ids"`
}

// keyLister is implemented by engines that can enumerate their keys.
type keyLister interface {
	Keys(ctx context.Context) ([]string, error)
}

// NewCommand creates the store command group.
func NewCommand() *cobra.Command {

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Save and restore named values",
		Long: `Save, restore and clear values by id.

Values are kept in the engine selected with --storage: file, keychain,
preferences or memory. The memory engine only lives for one invocation.`,
	}

	kind := shared.AddStorageFlag(cmd.PersistentFlags(), "Storage engine: file, keychain, preferences or memory (default from config)")
	_ = cmd.RegisterFlagCompletionFunc("storage", completion.CompleteStorageKinds)

	cmd.AddCommand(
		newSaveCommand(kind),
		newRestoreCommand(kind),
		newClearCommand(kind),
		newKeysCommand(kind),
	)
	return cmd
}

func newSaveCommand(kind *shared.StorageFlag) *cobra.Command {
	return &cobra.Command{
		Use:   "save <id> <value>",
		Short: "Save a value under id",
		Long:  `Save a value under id, replacing any previous value. Use - as the value to read it from stdin.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := args[1]
			if value == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return shared.NewFailedError("unable to read stdin", err)
				}
				value = strings.TrimRight(string(data), "\n")
			}

			return withValues(cmd, kind.String(), func(ctx context.Context, values *storage.MultiValue[Entry]) error {
				entry := Entry{Value: value, SavedAt: time.Now().UTC()}
				if err := values.Save(ctx, args[0], entry); err != nil {
					return shared.NewFailedError(fmt.Sprintf("unable to save %q", args[0]), err)
				}
				if shared.GetJSON() {
					return emitEntry(cmd.OutOrStdout(), "store save", args[0], entry, true)
				}
				if !shared.GetQuiet() {
					fmt.Fprintln(cmd.ErrOrStderr(), shared.RenderOK("saved "+args[0]))
				}
				return nil
			})
		},
	}
}

func newRestoreCommand(kind *shared.StorageFlag) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Print the value stored under id",
		Args:  cobra.ExactArgs(1),

		ValidArgsFunction: completeIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withValues(cmd, kind.String(), func(ctx context.Context, values *storage.MultiValue[Entry]) error {
				entry, ok, err := values.Restore(ctx, args[0])
				if err != nil {
					return shared.NewFailedError(fmt.Sprintf("unable to restore %q", args[0]), err)
				}
				return report(cmd, "store restore", args[0], entry, ok)
			})
		},
	}
}

func newClearCommand(kind *shared.StorageFlag) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <id>",
		Short: "Remove the value stored under id and print it",
		Args:  cobra.ExactArgs(1),

		ValidArgsFunction: completeIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withValues(cmd, kind.String(), func(ctx context.Context, values *storage.MultiValue[Entry]) error {
				entry, ok, err := values.Clear(ctx, args[0])
				if err != nil {
					return shared.NewFailedError(fmt.Sprintf("unable to clear %q", args[0]), err)
				}
				return report(cmd, "store clear", args[0], entry, ok)
			})
		},
	}
}

func newKeysCommand(kind *shared.StorageFlag) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List stored ids",
		Long:  `List the ids stored in the engine. Only engines that can enumerate their keys support this.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			app, err := shared.NewApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close(ctx, cmd.ErrOrStderr()) }()

			k, err := app.StorageKind(kind.String())
			if err != nil {
				return err
			}
			engine, err := app.Storage.Engine(k)
			if err != nil {
				return shared.NewFailedError("unable to open storage", err)
			}
			lister, ok := engine.(keyLister)
			if !ok {
				return shared.NewUsageError(fmt.Sprintf("the %s engine cannot list keys", engine.Name()), nil)
			}
			keys, err := lister.Keys(ctx)
			if err != nil {
				return shared.NewFailedError("unable to list keys", err)
			}

			ids := entryIDs(keys)
			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), keysResponse{
					JSONResponse: shared.NewResponse("store keys", true),
					Engine:       engine.Name(),
					IDs:          ids,
				})
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

var completeIDs = completion.CompleteStoredIDs(entrySuffix())

func entrySuffix() string {
	return "_" + storage.KeyFor[Entry]()
}

// entryIDs returns the ids of the Entry slots among keys, sorted.
func entryIDs(keys []string) []string {
	suffix := entrySuffix()
	ids := []string{}
	for _, k := range keys {
		if id, ok := strings.CutSuffix(k, suffix); ok && id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func withValues(cmd *cobra.Command, kind string, fn func(context.Context, *storage.MultiValue[Entry]) error) error {
	ctx := commandContext(cmd)
	app, err := shared.NewApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close(ctx, cmd.ErrOrStderr()) }()

	k, err := app.StorageKind(kind)
	if err != nil {
		return err
	}
	values, err := storage.Multi[Entry](app.Storage, k)
	if err != nil {
		return shared.NewFailedError("unable to open storage", err)
	}
	return fn(ctx, values)
}

func report(cmd *cobra.Command, command, id string, entry Entry, ok bool) error {
	if shared.GetJSON() {
		if err := emitEntry(cmd.OutOrStdout(), command, id, entry, ok); err != nil {
			return err
		}
	} else if ok {
		fmt.Fprintln(cmd.OutOrStdout(), entry.Value)
	} else if !shared.GetQuiet() {
		fmt.Fprintln(cmd.ErrOrStderr(), shared.RenderWarn("nothing stored under "+id))
	}

	if !ok {
		return shared.NewUnhandledError("nothing stored under " + id)
	}
	return nil
}

func emitEntry(w io.Writer, command, id string, entry Entry, ok bool) error {
	resp := entryResponse{
		JSONResponse: shared.NewResponse(command, ok),
		ID:           id,
		Found:        ok,
	}
	if ok {
		resp.Value = entry.Value
		resp.SavedAt = &entry.SavedAt
	}
	return shared.EmitJSON(w, resp)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
