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


package store

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/fetchkit/internal/commands/shared"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("FETCHKIT_CONFIG", "")
	t.Setenv("FETCHKIT_STORAGE_DIR", t.TempDir())
	t.Setenv("FETCHKIT_STORAGE_KIND", "")
	t.Setenv("FETCHKIT_MASTER_KEY", "")
	t.Setenv("FETCHKIT_TRACE_EXPORTER", "")
	t.Setenv("FETCHKIT_LOG_LEVEL", "error")

	shared.ResetFlagsForTest()
	t.Cleanup(shared.ResetFlagsForTest)
}

func run(t *testing.T, stdin io.Reader, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestSaveRestoreClear(t *testing.T) {
	for _, kind := range []string{"file", "preferences"} {
		t.Run(kind, func(t *testing.T) {
			setupEnv(t)

			_, _, err := run(t, nil, "save", "greeting", "hello", "--storage", kind)
			require.NoError(t, err)

			out, _, err := run(t, nil, "restore", "greeting", "--storage", kind)
			require.NoError(t, err)
			assert.Equal(t, "hello\n", out)

			out, _, err = run(t, nil, "clear", "greeting", "--storage", kind)
			require.NoError(t, err)
			assert.Equal(t, "hello\n", out, "clear prints the removed value")

			out, stderr, err := run(t, nil, "restore", "greeting", "--storage", kind)
			assert.Empty(t, out)
			assert.Contains(t, stderr, "nothing stored under greeting")
			assert.Equal(t, shared.ExitUnhandled, shared.ExitCode(err))
		})
	}
}

func TestSaveOverwrites(t *testing.T) {
	setupEnv(t)

	_, _, err := run(t, nil, "save", "k", "one")
	require.NoError(t, err)
	_, _, err = run(t, nil, "save", "k", "two")
	require.NoError(t, err)

	out, _, err := run(t, nil, "restore", "k")
	require.NoError(t, err)
	assert.Equal(t, "two\n", out)
}

func TestSaveFromStdin(t *testing.T) {
	setupEnv(t)

	_, _, err := run(t, strings.NewReader("from stdin\n"), "save", "piped", "-")
	require.NoError(t, err)

	out, _, err := run(t, nil, "restore", "piped")
	require.NoError(t, err)
	assert.Equal(t, "from stdin\n", out)
}

func TestClearMissing(t *testing.T) {
	setupEnv(t)

	_, _, err := run(t, nil, "clear", "absent")
	assert.Equal(t, shared.ExitUnhandled, shared.ExitCode(err))
}

func TestKeys(t *testing.T) {
	setupEnv(t)

	for _, id := range []string{"beta", "alpha"} {
		_, _, err := run(t, nil, "save", id, "v")
		require.NoError(t, err)
	}

	out, _, err := run(t, nil, "keys")
	require.NoError(t, err)
	assert.Equal(t, "alpha\nbeta\n", out)

	_, _, err = run(t, nil, "keys", "--storage", "file")
	assert.Equal(t, shared.ExitUsage, shared.ExitCode(err))
}

func TestRestoreJSON(t *testing.T) {
	setupEnv(t)

	_, _, err := run(t, nil, "save", "k", "v")
	require.NoError(t, err)

	*shared.RegisterFlagPointers().JSON = true
	out, _, err := run(t, nil, "restore", "k")
	require.NoError(t, err)

	var resp entryResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Found)
	assert.Equal(t, "v", resp.Value)
	assert.Equal(t, "store restore", resp.Command)
	require.NotNil(t, resp.SavedAt)
	assert.False(t, resp.SavedAt.IsZero())
}

func TestInvalidArguments(t *testing.T) {
	setupEnv(t)

	_, _, err := run(t, nil, "save", "only-id")
	assert.Error(t, err)

	_, _, err = run(t, nil, "save", " ", "v")
	assert.Equal(t, shared.ExitFailed, shared.ExitCode(err))

	_, _, err = run(t, nil, "restore", "k", "--storage", "tape")
	assert.ErrorContains(t, err, "unknown storage kind")
}

func TestEntryIDs(t *testing.T) {
	keys := []string{
		"b_store.Entry",
		"a_store.Entry",
		"fact.CatFact",
		"_store.Entry",
		"c_other.Entry",
	}
	assert.Equal(t, []string{"a", "b"}, entryIDs(keys))
	assert.Empty(t, entryIDs(nil))
}
