package e2etest

import (
	"bytes"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type response struct {
	Status int
	Header http.Header
	Body   gjson.Result
}

// call sends a request to the API and parses the JSON body
func call(t *testing.T, env *TestEnv, method, path, body string) response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, env.ServerBaseURL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "Should be able to make a request to %s", path)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "Should be able to read response body")

	return response{Status: resp.StatusCode, Header: resp.Header, Body: gjson.ParseBytes(raw)}
}

// waitForWatchlist waits for the first watch-list fetch
func waitForWatchlist(t *testing.T, env *TestEnv) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := env.App.Watchlist.Snapshot(); ok {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("Watch list was never fetched")
}
