package connmock

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/connmock/pkg/logging"
)

func buildConnector(t *testing.T, build func(b *Builder)) *Connector {
	t.Helper()
	b := NewBuilder()
	build(b)
	return b.Build()
}

func get(t *testing.T, client *http.Client, url string) (*http.Response, string) {
	t.Helper()
	res, err := client.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(body)
}

func TestClientRoundTrip(t *testing.T) {
	c := buildConnector(t, func(b *Builder) {
		require.NoError(t, b.Expect().
			WithMethod("GET").
			WithURI("http://example.com/hello").
			Returning(Body("world")))
	})

	res, body := get(t, c.Client(), "http://example.com/hello")
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, "world", body)
	assert.Equal(t, 1, c.Cases()[0].Seen())
}

func TestClientHTTPSWithoutHandshake(t *testing.T) {
	c := buildConnector(t, func(b *Builder) {
		require.NoError(t, b.Expect().
			WithURI("https://secure.example.com/token").
			Returning(StatusBody(201, "issued")))
	})

	res, body := get(t, c.Client(), "https://secure.example.com/token")
	assert.Equal(t, 201, res.StatusCode)
	assert.Equal(t, "issued", body)
}

func TestClientNonDefaultPort(t *testing.T) {
	c := buildConnector(t, func(b *Builder) {
		require.NoError(t, b.Expect().
			WithURI("http://example.com:8080/x").
			Returning(Body("ok")))
	})

	res, body := get(t, c.Client(), "http://example.com:8080/x")
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, "ok", body)
}

func TestClientJSONRoundTrip(t *testing.T) {
	c := buildConnector(t, func(b *Builder) {
		require.NoError(t, b.Expect().
			WithMethod("POST").
			WithJSONPartial(map[string]any{"name": "ada"}).
			Returning(StatusJSON(201, map[string]any{"id": 7})))
	})

	client := c.Client()
	res, err := client.Post("http://api.example.com/users", "application/json",
		strings.NewReader(`{"name":"ada","team":"compute"}`))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, 201, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.True(t, jsonEqual(parseJSON(t, string(body)), parseJSON(t, `{"id":7}`)))
}

func TestClientHeaderMatching(t *testing.T) {
	c := buildConnector(t, func(b *Builder) {
		require.NoError(t, b.Expect().
			WithHeader("Authorization", "Bearer token").
			Returning(Body("authorized")))
		require.NoError(t, b.Expect().
			Returning(Status(401)))
	})

	client := c.Client()

	req, err := http.NewRequest("GET", "http://example.com/", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer token")
	res, err := client.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, 200, res.StatusCode)

	res, err = client.Get("http://example.com/")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, 401, res.StatusCode)
}

func TestFirstFullMatchWins(t *testing.T) {
	c := buildConnector(t, func(b *Builder) {
		require.NoError(t, b.Expect().WithMethod("GET").Returning(Body("first")))
		require.NoError(t, b.Expect().Returning(Body("second")))
	})

	_, body := get(t, c.Client(), "http://example.com/")
	assert.Equal(t, "first", body)

	cases := c.Cases()
	assert.Equal(t, 1, cases[0].Seen())
	assert.Equal(t, 0, cases[1].Seen())
}

func TestEarlierMismatchFallsThrough(t *testing.T) {
	c := buildConnector(t, func(b *Builder) {
		require.NoError(t, b.Expect().WithMethod("POST").Returning(Body("posts")))
		require.NoError(t, b.Expect().WithMethod("GET").Returning(Body("gets")))
	})

	_, body := get(t, c.Client(), "http://example.com/")
	assert.Equal(t, "gets", body)
	assert.Equal(t, 0, c.Cases()[0].Seen())
}

func TestClientNoMatch(t *testing.T) {
	c := buildConnector(t, func(b *Builder) {
		require.NoError(t, b.Expect().WithMethod("POST").Returning(Body("x")))
	})

	_, err := c.Client().Get("http://example.com/")
	require.Error(t, err)
	assert.ErrorContains(t, err, "no registered case matches")
}

func TestClientMatcherError(t *testing.T) {
	c := buildConnector(t, func(b *Builder) {
		require.NoError(t, b.Expect().
			WithPredicate(func(*Request) (bool, error) {
				return false, errors.New("predicate exploded")
			}).
			Returning(Body("x")))
	})

	_, err := c.Client().Get("http://example.com/")
	require.Error(t, err)
	assert.ErrorContains(t, err, "matcher failed")
	assert.ErrorContains(t, err, "predicate exploded")
}

func TestClientResponderError(t *testing.T) {
	c := buildConnector(t, func(b *Builder) {
		require.NoError(t, b.Expect().
			Returning(ResponderFunc(func(*Request) (*Response, error) {
				return nil, errors.New("responder exploded")
			})))
	})

	_, err := c.Client().Get("http://example.com/")
	require.Error(t, err)
	assert.ErrorContains(t, err, "responder failed")

	// The case still counts as dispatched: the match happened.
	assert.Equal(t, 1, c.Cases()[0].Seen())
}

func TestCheckpoint(t *testing.T) {
	c := buildConnector(t, func(b *Builder) {
		require.NoError(t, b.Expect().WithURI("http://example.com/a").Times(2).Returning(Body("a")))
		require.NoError(t, b.Expect().WithURI("http://example.com/b").Times(1).Returning(Body("b")))
		require.NoError(t, b.Expect().WithURI("http://example.com/c").Returning(Body("c")))
	})

	client := c.Client()
	get(t, client, "http://example.com/a")
	get(t, client, "http://example.com/b")

	var cpErr *CheckpointError
	require.ErrorAs(t, c.Checkpoint(), &cpErr)
	require.Len(t, cpErr.Mismatches, 1)
	assert.Equal(t, c.Cases()[0].ID(), cpErr.Mismatches[0].CaseID)
	assert.Equal(t, 2, cpErr.Mismatches[0].Expected)
	assert.Equal(t, 1, cpErr.Mismatches[0].Got)

	get(t, client, "http://example.com/a")
	require.NoError(t, c.Checkpoint())

	// Idempotent between dispatches.
	require.NoError(t, c.Checkpoint())

	// Overshooting is a violation too.
	get(t, client, "http://example.com/b")
	require.ErrorAs(t, c.Checkpoint(), &cpErr)
	assert.Equal(t, 2, cpErr.Mismatches[0].Got)
}

func TestCheckpointAggregatesAllMismatches(t *testing.T) {
	c := buildConnector(t, func(b *Builder) {
		require.NoError(t, b.Expect().Times(1).Returning(Body("a")))
		require.NoError(t, b.Expect().Times(3).Returning(Body("b")))
	})

	var cpErr *CheckpointError
	require.ErrorAs(t, c.Checkpoint(), &cpErr)
	assert.Len(t, cpErr.Mismatches, 2)
	assert.Contains(t, cpErr.Error(), "call count mismatch for 2 case(s)")
}

func TestConnectionReuse(t *testing.T) {
	c := buildConnector(t, func(b *Builder) {
		require.NoError(t, b.Expect().Times(3).Returning(Body("pong")))
	})

	client := c.Client()
	for i := 0; i < 3; i++ {
		_, body := get(t, client, "http://example.com/ping")
		assert.Equal(t, "pong", body)
	}
	require.NoError(t, c.Checkpoint())
}

func TestNoMatchLogging(t *testing.T) {
	var buf bytes.Buffer
	b := NewBuilder()
	b.SetLogger(logging.New(logging.Config{Format: logging.FormatText, Output: &buf}))
	require.NoError(t, b.Expect().WithMethod("POST").Returning(Body("x")))
	c := b.Build()

	_, err := c.Client().Get("http://example.com/missing")
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "no matching case for request")
	assert.Contains(t, out, "http://example.com/missing")
}

func TestLevelNoneSilencesDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	b := NewBuilder()
	b.SetLevel(LevelNone)
	b.SetLogger(logging.New(logging.Config{Format: logging.FormatText, Output: &buf}))
	require.NoError(t, b.Expect().
		WithPredicate(func(*Request) (bool, error) { return false, errors.New("boom") }).
		Returning(Body("x")))
	c := b.Build()

	_, err := c.Client().Get("http://example.com/")
	require.Error(t, err)
	assert.Empty(t, buf.String())
}

func TestLevelErrorSkipsMissingDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	b := NewBuilder()
	b.SetLevel(LevelError)
	b.SetLogger(logging.New(logging.Config{Format: logging.FormatText, Output: &buf}))
	require.NoError(t, b.Expect().WithMethod("POST").Returning(Body("x")))
	c := b.Build()

	_, err := c.Client().Get("http://example.com/")
	require.Error(t, err)
	assert.Empty(t, buf.String())
}

func TestDialContextCanceled(t *testing.T) {
	c := buildConnector(t, func(b *Builder) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.DialContext(ctx, "tcp", "example.com:80")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTargetURL(t *testing.T) {
	tests := []struct {
		addr    string
		want    string
		wantErr bool
	}{
		{addr: "example.com:80", want: "http://example.com"},
		{addr: "example.com:443", want: "https://example.com"},
		{addr: "example.com:8080", want: "http://example.com:8080"},
		{addr: "example.com", want: "http://example.com"},
		{addr: "127.0.0.1:9000", want: "http://127.0.0.1:9000"},
		{addr: "[::1]:443", want: "https://[::1]"},
		{addr: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			u, err := targetURL(tt.addr)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.String())
		})
	}
}
