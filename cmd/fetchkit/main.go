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


package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tombee/fetchkit/internal/cli"
	"github.com/tombee/fetchkit/internal/commands/completion"
	configcmd "github.com/tombee/fetchkit/internal/commands/config"
	"github.com/tombee/fetchkit/internal/commands/fact"
	"github.com/tombee/fetchkit/internal/commands/request"
	"github.com/tombee/fetchkit/internal/commands/store"
	versioncmd "github.com/tombee/fetchkit/internal/commands/version"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildDate)

	rootCmd := cli.NewRootCommand()

	// Request commands
	rootCmd.AddCommand(request.NewGetCommand())
	rootCmd.AddCommand(request.NewPostCommand())
	rootCmd.AddCommand(request.NewUploadCommand())

	// Storage-backed commands
	rootCmd.AddCommand(fact.NewCommand())
	rootCmd.AddCommand(store.NewCommand())

	// Configuration and shell integration
	rootCmd.AddCommand(configcmd.NewConfigCommand())
	rootCmd.AddCommand(completion.NewCommand())
	rootCmd.AddCommand(versioncmd.NewCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		cli.HandleExitError(err)
	}
}
