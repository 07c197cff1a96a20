package network

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unknownError = "Unknown error"

func fetchFact(t *testing.T, m *Manager, rawURL string) string {
	t.Helper()
	return Get[string](context.Background(), m, rawURL).
		Handle(http.StatusOK, Decode(func(f catFact) string { return f.Fact })).
		Fallback(func() string { return unknownError })
}

func TestGetCatFact(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
		want    string
	}{
		{
			name:    "200 with fact",
			status:  http.StatusOK,
			payload: `{"fact":"Cats sleep 70% of their lives.","length":30}`,
			want:    "Cats sleep 70% of their lives.",
		},
		{
			name:    "404 falls back",
			status:  http.StatusNotFound,
			payload: `{"message":"not found"}`,
			want:    unknownError,
		},
		{
			name:    "200 with undecodable payload falls back",
			status:  http.StatusOK,
			payload: `not json`,
			want:    unknownError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/fact", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.payload))
			}))
			defer srv.Close()

			m := newTestManager(t, transportFromServer(srv))
			assert.Equal(t, tt.want, fetchFact(t, m, srv.URL+"/fact"))
		})
	}
}

func TestGetTransportFailureFallsBack(t *testing.T) {
	m := newTestManager(t, failWith(errors.New("no route to host")))
	assert.Equal(t, unknownError, fetchFact(t, m, "https://catfact.ninja/fact"))
}

func TestFirstMatchingClauseWins(t *testing.T) {
	m := newTestManager(t, respondWith(200, `{"fact":"first","length":5}`))

	secondRan := false
	got := Get[string](context.Background(), m, "https://catfact.ninja/fact").
		Handle(200, Decode(func(f catFact) string { return "one:" + f.Fact })).
		Handle(200, Decode(func(f catFact) string {
			secondRan = true
			return "two:" + f.Fact
		})).
		Fallback(func() string { return unknownError })

	assert.Equal(t, "one:first", got)
	assert.True(t, secondRan, "later matching clauses still execute")
}

func TestDecodeFailureLeavesResultOpenForLaterClause(t *testing.T) {
	buf := &syncBuffer{}
	m := newTestManager(t, respondWith(200, `{"fact":"typed"}`), WithLogger(newTestLogger(buf)))

	type wrongShape struct {
		Fact int `json:"fact"`
	}

	res := Get[string](context.Background(), m, "https://catfact.ninja/fact").
		Handle(200, Decode(func(w wrongShape) string { return "never" })).
		Handle(200, Decode(func(f catFact) string { return f.Fact }))

	require.True(t, res.Claimed())
	assert.Equal(t, "typed", res.Fallback(func() string { return unknownError }))

	logs := buf.String()
	assert.Contains(t, logs, "unable to decode response payload")
	assert.Contains(t, logs, "wrongShape")
	assert.Contains(t, logs, "status=200")
}

func TestHandleSkipsFailures(t *testing.T) {
	out := Failure(errors.New("offline"), []byte(`{"fact":"stale"}`))

	called := false
	got := NewResult[string](out, nil).
		Handle(0, Decode(func(f catFact) string {
			called = true
			return f.Fact
		})).
		Fallback(func() string { return unknownError })

	assert.False(t, called)
	assert.Equal(t, unknownError, got)
}

func TestHandleCode(t *testing.T) {
	m := newTestManager(t, respondWith(http.StatusNoContent, ""))

	got := Get[string](context.Background(), m, "https://example.com/items").
		Handle(http.StatusOK, As[string]()).
		HandleCode(http.StatusNoContent, func() string { return "empty" }).
		Fallback(func() string { return unknownError })

	assert.Equal(t, "empty", got)
}

func TestFallbackDetail(t *testing.T) {
	t.Run("status and payload of unhandled response", func(t *testing.T) {
		m := newTestManager(t, respondWith(http.StatusTeapot, "short and stout"))

		got := Get[string](context.Background(), m, "https://example.com").
			Handle(http.StatusOK, As[string]()).
			FallbackDetail(func(fd FallbackData) string {
				assert.Equal(t, http.StatusTeapot, fd.StatusCode)
				assert.NoError(t, fd.Err)
				return string(fd.Payload)
			})

		assert.Equal(t, "short and stout", got)
	})

	t.Run("error of failed request", func(t *testing.T) {
		refused := errors.New("refused")
		m := newTestManager(t, failWith(refused))

		got := Get[error](context.Background(), m, "https://example.com").
			FallbackDetail(func(fd FallbackData) error {
				assert.Zero(t, fd.StatusCode)
				return fd.Err
			})

		assert.ErrorIs(t, got, refused)
	})
}

func TestPostAndUploadEntryPoints(t *testing.T) {
	transport := respondWith(http.StatusCreated, `{"id":"42"}`)
	m := newTestManager(t, transport)

	type created struct {
		ID string `json:"id"`
	}

	id := Post[string](context.Background(), m, "https://example.com/items", map[string]string{"name": "x"}).
		Handle(http.StatusCreated, Decode(func(c created) string { return c.ID })).
		Fallback(func() string { return "" })
	assert.Equal(t, "42", id)

	uploaded := Upload[bool](context.Background(), m, "https://example.com/blob", []byte("raw")).
		HandleCode(http.StatusCreated, func() bool { return true }).
		Fallback(func() bool { return false })
	assert.True(t, uploaded)

	calls := transport.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, http.MethodPut, calls[1].Method)
	assert.Equal(t, "raw", string(calls[1].Body))
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "network.catFact", TypeName[catFact]())
	assert.Equal(t, "[]string", TypeName[[]string]())
}
