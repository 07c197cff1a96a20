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

// Package fact implements the fact command: fetch a random cat fact, cache
// the last one, and show it again offline.
package fact

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/tombee/fetchkit/internal/commands/completion"
	"github.com/tombee/fetchkit/internal/commands/shared"
	"github.com/tombee/fetchkit/internal/log"
	"github.com/tombee/fetchkit/pkg/network"
	"github.com/tombee/fetchkit/pkg/storage"
)

const (
	// DefaultURL serves a random cat fact.
	DefaultURL = "https://catfact.ninja/fact"

	// UnknownError is shown when no fact could be fetched.
	UnknownError = "Unknown error"
)

// CatFact is the payload returned by DefaultURL.
type CatFact struct {
	Fact   string `json:"fact"`
	Length int    `json:"length"`
}

type factResponse struct {
	shared.JSONResponse
	Fact   string `json:"fact"`
	Cached bool   `json:"cached"`
}

// NewCommand creates the fact command.
func NewCommand() *cobra.Command {
	var (
		url    string
		cached bool
		kind   *shared.StorageFlag
	)

	cmd := &cobra.Command{
		Use:   "fact",
		Short: "Print a random cat fact",
		Long: `Fetch a random cat fact. The last fact fetched is cached, and --cached
prints it without touching the network.

When the service does not answer with a fact, "Unknown error" is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			app, err := shared.NewApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close(ctx, cmd.ErrOrStderr()) }()

			k, err := app.StorageKind(kind.String())
			if err != nil {
				return err
			}
			cache, err := storage.Single[CatFact](app.Storage, k)
			if err != nil {
				return shared.NewFailedError("unable to open fact cache", err)
			}

			if cached {
				return showCached(ctx, cmd, cache)
			}
			return fetch(ctx, cmd, app, cache, url)
		},
	}

	cmd.Flags().StringVar(&url, "url", DefaultURL, "Fact service URL")
	cmd.Flags().BoolVar(&cached, "cached", false, "Print the last cached fact without fetching")
	kind = shared.AddStorageFlag(cmd.Flags(), "Storage engine for the cache: file, keychain, preferences or memory (default from config)")
	_ = cmd.RegisterFlagCompletionFunc("storage", completion.CompleteStorageKinds)

	return cmd
}

func fetch(ctx context.Context, cmd *cobra.Command, app *shared.App, cache *storage.SingleValue[CatFact], url string) error {
	ctx, span := app.Tracer.Start(ctx, "fetchkit fact")
	defer span.End()

	spinner := shared.NewSpinner()
	spinner.Start("Fetching a cat fact")

	// Callbacks run on the request's queue; Wait orders them before the
	// reads below.
	var (
		fetched   CatFact
		unhandled bool
	)
	req := app.Manager.Start(ctx, http.MethodGet, url, nil).
		Handle(http.StatusOK, network.On(func(f CatFact) { fetched = f })).
		Fallback(func() { unhandled = true })

	err := req.Wait(ctx)
	spinner.Stop()
	if err != nil {
		return shared.NewFailedError("fact request interrupted", err)
	}

	if unhandled {
		if out, ok := req.Outcome(); ok && !out.Failed() {
			app.Logger.Info("fact service did not return a fact", log.StatusKey, out.StatusCode)
		}
		if err := show(cmd, UnknownError, false, false); err != nil {
			return err
		}
		return shared.NewUnhandledError("no fact received")
	}

	if err := cache.Save(ctx, fetched); err != nil {
		app.Logger.Warn("unable to cache fact", log.Error(err))
	}
	return show(cmd, fetched.Fact, false, true)
}

func showCached(ctx context.Context, cmd *cobra.Command, cache *storage.SingleValue[CatFact]) error {
	f, ok, err := cache.Restore(ctx)
	if err != nil {
		return shared.NewFailedError("unable to read fact cache", err)
	}
	if !ok {
		if err := show(cmd, UnknownError, true, false); err != nil {
			return err
		}
		return shared.NewUnhandledError("no cached fact")
	}
	return show(cmd, f.Fact, true, true)
}

func show(cmd *cobra.Command, text string, cached, success bool) error {
	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), factResponse{
			JSONResponse: shared.NewResponse("fact", success),
			Fact:         text,
			Cached:       cached,
		})
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}
