package untappd_test

import (
	"compress/gzip"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"droscher.com/BeerLedger/configs"
	"droscher.com/BeerLedger/pkg/cache"
	. "droscher.com/BeerLedger/pkg/integrations/untappd"
)

// scripted serves fixed bodies per path and counts the requests it receives.
type scripted struct {
	*httptest.Server

	bodies   map[string]string
	gzipped  bool
	inspect  func(path string, r *http.Request)
	requests map[string]int
}

func newScripted(t *testing.T, bodies map[string]string) *scripted {
	t.Helper()

	server := &scripted{bodies: bodies, requests: map[string]int{}}
	server.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/v4")
		server.requests[path]++

		if server.inspect != nil {
			server.inspect(path, r)
		}

		body, ok := server.bodies[path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"meta":{"code":404,"error_detail":"no such endpoint"},"response":[]}`))

			return
		}

		if !server.gzipped {
			_, _ = w.Write([]byte(body))

			return
		}

		w.Header().Set("Content-Encoding", "gzip")

		writer := gzip.NewWriter(w)
		_, _ = writer.Write([]byte(body))
		_ = writer.Close()
	}))
	t.Cleanup(server.Close)

	return server
}

func envelopeOf(t *testing.T, response any) string {
	t.Helper()

	data, err := json.Marshal(map[string]any{"meta": map[string]any{"code": 200}, "response": response})
	require.NoError(t, err)

	return string(data)
}

func testConfig(baseURL string, dir string) *configs.Config {
	conf := &configs.Config{}
	conf.API.BaseURL = baseURL + "/v4"
	conf.API.ClientID = "test-client"
	conf.API.ClientSecret = "test-secret"
	conf.API.UserAgent = "okhttp/4.9.3"
	conf.API.AppVersion = "4.5.10"
	conf.Cache.Dir = dir + "/cache"
	conf.Auth.CredentialsFile = dir + "/creds.json"

	return conf
}

func newTestClient(t *testing.T, conf *configs.Config) *Client {
	t.Helper()

	store, err := cache.NewDirStore(conf.Cache.Dir, zaptest.NewLogger(t))
	require.NoError(t, err)

	return NewClient(conf, store, zaptest.NewLogger(t))
}
