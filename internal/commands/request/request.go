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

// Package request implements the get, post and upload commands.
package request

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/fetchkit/internal/commands/completion"
	"github.com/tombee/fetchkit/internal/commands/shared"
	"github.com/tombee/fetchkit/internal/jq"
	"github.com/tombee/fetchkit/pkg/network"
)

// DefaultFallback is printed when no expected status matched.
const DefaultFallback = "Unknown error"

type options struct {
	expect   []int
	query    string
	raw      bool
	fallback string
	headers  []string
	data     string
}

func (o *options) register(cmd *cobra.Command, expect []int, withData bool) {
	fs := cmd.Flags()
	fs.IntSliceVarP(&o.expect, "expect", "e", expect, "Status codes whose payload is printed (repeatable)")
	fs.StringVar(&o.query, "query", "", "jq expression applied to the payload")
	fs.BoolVarP(&o.raw, "raw", "r", false, "Print string query results without quotes")
	fs.StringVar(&o.fallback, "fallback", DefaultFallback, "Text printed when no expected status matched")
	fs.StringArrayVarP(&o.headers, "header", "H", nil, "Request header as key=value (repeatable)")
	if withData {
		fs.StringVarP(&o.data, "data", "d", "", "JSON request body")
	}
	_ = cmd.RegisterFlagCompletionFunc("expect", completion.CompleteStatusCodes)
}

// NewGetCommand creates the get command.
func NewGetCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "get <url>",
		Short: "Send a GET request and print the payload",
		Long: `Send a GET request and print the payload of an expected response.

If the response status is not one of --expect, the request fails, or the
--query cannot be applied, the --fallback text is printed instead and the
command exits with status 3.`,
		Example: `  fetchkit get https://catfact.ninja/fact --query .fact --raw
  fetchkit get https://api.example.com/items -e 200 -e 204 -H Accept=application/json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, http.MethodGet, args[0], nil, opts)
		},
	}
	opts.register(cmd, []int{http.StatusOK}, false)
	return cmd
}

// NewPostCommand creates the post command.
func NewPostCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:     "post <url>",
		Short:   "Send a POST request with a JSON body",
		Example: `  fetchkit post https://api.example.com/items -d '{"name":"x"}' -e 201`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body any
			if opts.data != "" {
				if !json.Valid([]byte(opts.data)) {
					return shared.NewUsageError("--data is not valid JSON", nil)
				}
				body = json.RawMessage(opts.data)
			}
			return run(cmd, http.MethodPost, args[0], body, opts)
		},
	}
	opts.register(cmd, []int{http.StatusOK, http.StatusCreated}, true)
	return cmd
}

// NewUploadCommand creates the upload command.
func NewUploadCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "upload <url> <file>",
		Short: "PUT a file's raw bytes",
		Long: `PUT the raw bytes of a file. Use - to read from standard input.

Uploads skip response interceptors, so they are never retried or
re-authenticated.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readUpload(cmd.InOrStdin(), args[1])
			if err != nil {
				return shared.NewUsageError("unable to read upload", err)
			}
			return run(cmd, http.MethodPut, args[0], data, opts)
		},
	}
	opts.register(cmd, []int{http.StatusOK, http.StatusCreated, http.StatusNoContent}, false)
	return cmd
}

func readUpload(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func parseHeaders(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		k, v, ok := strings.Cut(h, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("header %q is not key=value", h)
		}
		headers[k] = strings.TrimSpace(v)
	}
	return headers, nil
}

// render returns a handler printing the payload, filtered through q when set.
func render(ctx context.Context, q *jq.Query) network.Handler[string] {
	return func(payload []byte) (string, error) {
		if q == nil {
			return string(payload), nil
		}
		return q.Format(ctx, payload)
	}
}

func run(cmd *cobra.Command, method, rawURL string, body any, opts *options) error {
	headers, err := parseHeaders(opts.headers)
	if err != nil {
		return shared.NewUsageError("invalid --header", err)
	}

	var q *jq.Query
	if opts.query != "" {
		var qopts []jq.Option
		if opts.raw {
			qopts = append(qopts, jq.WithRawStrings())
		}
		if q, err = jq.Compile(opts.query, qopts...); err != nil {
			return shared.NewUsageError("invalid --query", err)
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := shared.NewApp(ctx, shared.WithHeaders(headers))
	if err != nil {
		return err
	}
	defer func() { _ = app.Close(ctx, cmd.ErrOrStderr()) }()

	ctx, span := app.Tracer.Start(ctx, "fetchkit "+cmd.Name())
	defer span.End()

	var res *network.Result[string]
	switch method {
	case http.MethodPut:
		res = network.Upload[string](ctx, app.Manager, rawURL, body.([]byte))
	case http.MethodPost:
		res = network.Post[string](ctx, app.Manager, rawURL, body)
	default:
		res = network.Get[string](ctx, app.Manager, rawURL)
	}

	format := render(ctx, q)
	var payloadErr error
	handler := func(payload []byte) (string, error) {
		text, err := format(payload)
		if err != nil {
			payloadErr = err
		}
		return text, err
	}
	for _, code := range opts.expect {
		res = res.Handle(code, handler)
	}

	handled := true
	output := res.FallbackDetail(func(network.FallbackData) string {
		handled = false
		return opts.fallback
	})

	return report(cmd, method, rawURL, res.Outcome(), handled, output, payloadErr)
}

// report prints the output and maps an unhandled response to an exit error.
// payloadErr is set when an expected status arrived but its payload could
// not be rendered.
func report(cmd *cobra.Command, method, rawURL string, out network.Outcome, handled bool, output string, payloadErr error) error {
	if shared.GetJSON() {
		result := shared.RequestResult{
			JSONResponse: shared.NewResponse(cmd.Name(), handled),
			Method:       method,
			URL:          rawURL,
			StatusCode:   out.StatusCode,
			Handled:      handled,
			Output:       output,
		}
		if !out.Failed() && json.Valid(out.Payload) {
			result.Payload = out.Payload
		}
		if out.Err != nil {
			result.Error = out.Err.Error()
		}
		if err := shared.EmitJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		if shared.GetVerbose() && !out.Failed() {
			fmt.Fprintln(cmd.ErrOrStderr(), shared.RenderStatusCode(out.StatusCode))
		}
		fmt.Fprintln(cmd.OutOrStdout(), output)
	}

	if handled {
		return nil
	}

	reason := "no handler accepted the response"
	switch {
	case out.Failed():
		reason = fmt.Sprintf("request failed: %v", out.Err)
	case payloadErr != nil:
		reason = fmt.Sprintf("unable to process status %d payload: %v", out.StatusCode, payloadErr)
	case out.StatusCode > 0:
		reason = fmt.Sprintf("unexpected status %d", out.StatusCode)
	}
	if !shared.GetQuiet() && !shared.GetJSON() {
		fmt.Fprintln(cmd.ErrOrStderr(), shared.RenderWarn(reason))
	}
	return shared.NewUnhandledError(reason)
}
