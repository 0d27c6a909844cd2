package untappd

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"droscher.com/BeerLedger/configs"
	"droscher.com/BeerLedger/pkg/cache"
	"droscher.com/BeerLedger/pkg/metrics"
)

const (
	IntegrationName = "untappd"

	apiVersion      = "4.0.0"
	defaultMaxPages = 10000
	redacted        = "[redacted]"
)

var (
	ErrProtocol        = errors.New("untappd protocol error")
	ErrRequestFailed   = errors.New("untappd request failed")
	ErrMapping         = errors.New("untappd mapping error")
	ErrPaginationLimit = errors.New("pagination limit reached")
)

type Client struct {
	baseURL         string
	baseQuery       string
	headers         map[string]string
	deviceID        string
	appVersion      string
	pageDelay       time.Duration
	maxPages        int
	timezoneOffset  int
	credentialsFile string
	refresh         bool

	httpClient *http.Client
	cache      cache.Store
	limiter    *rate.Limiter
	logger     *zap.Logger
}

type Request struct {
	Path   string
	Params url.Values
	Body   url.Values
	Delay  time.Duration
	// NoCache keeps the exchange out of the cache entirely. Used for calls
	// that carry a password or hand back a token.
	NoCache bool
}

type envelope struct {
	Meta struct {
		Code        int    `json:"code"`
		ErrorDetail string `json:"error_detail"`
	} `json:"meta"`
	Response json.RawMessage `json:"response"`
}

func NewClient(conf *configs.Config, store cache.Store, logger *zap.Logger) *Client {
	baseQuery := url.Values{}
	baseQuery.Set("client_id", conf.API.ClientID)
	baseQuery.Set("client_secret", conf.API.ClientSecret)
	baseQuery.Set("utv", apiVersion)

	headers := map[string]string{
		"accept-language": "en",
		"accept-encoding": "gzip",
		"content-type":    "application/x-www-form-urlencoded",
		"accept":          "application/json; charset=utf-8",
		"user-agent":      conf.API.UserAgent,
	}

	if conf.API.DeviceID != "" {
		headers["x-untappd-app-version"] = conf.API.AppVersion
		headers["x-untappd-app"] = "android"
		headers["x-react-native"] = "1"
	}

	limit := rate.Inf
	if conf.API.RequestsPerSecond > 0 {
		limit = rate.Limit(conf.API.RequestsPerSecond)
	}

	maxPages := conf.API.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	return &Client{
		baseURL:         strings.TrimSuffix(conf.API.BaseURL, "/"),
		baseQuery:       baseQuery.Encode(),
		headers:         headers,
		deviceID:        conf.API.DeviceID,
		appVersion:      conf.API.AppVersion,
		pageDelay:       conf.API.PageDelay,
		maxPages:        maxPages,
		timezoneOffset:  conf.API.TimezoneOffset,
		credentialsFile: conf.Auth.CredentialsFile,
		httpClient:      &http.Client{Timeout: conf.API.Timeout},
		cache:           store,
		limiter:         rate.NewLimiter(limit, 1),
		logger:          logger.Named(IntegrationName),
	}
}

// Authenticated returns a copy of the client that sends the session's bearer
// token. The receiver is left untouched.
func (c *Client) Authenticated(session *Session) *Client {
	authed := *c
	authed.headers = maps.Clone(c.headers)
	authed.headers["authorization"] = "Bearer " + session.Token

	return &authed
}

// Refreshing returns a copy of the client that always goes to the network.
// Responses are still written to the cache when no entry exists yet.
func (c *Client) Refreshing() *Client {
	refreshing := *c
	refreshing.refresh = true

	return &refreshing
}

// Call answers from the cache when it can, otherwise performs the request,
// stores the raw envelope and returns its response field.
func (c *Client) Call(ctx context.Context, request Request) (json.RawMessage, error) {
	requestURL := c.buildURL(request.Path, request.Params)

	postData := ""
	if request.Body != nil {
		postData = request.Body.Encode()
	}

	fingerprint := cache.Fingerprint(requestURL, c.headers, postData)

	if !request.NoCache && !c.refresh {
		entry, err := c.cache.Get(fingerprint)
		if err == nil {
			c.logger.Debug("cache hit", zap.String("path", request.Path), zap.String("fingerprint", fingerprint))
			metrics.APIRequests.WithLabelValues(metrics.SourceCache).Inc()

			return unwrapEnvelope([]byte(entry.Result))
		}

		if !errors.Is(err, cache.ErrMiss) {
			return nil, fmt.Errorf("%w: reading cached %s: %w", ErrProtocol, request.Path, err)
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := c.do(ctx, request.Path, requestURL, request.Body)
	if err != nil {
		return nil, err
	}

	response, err := unwrapEnvelope(body)
	if err != nil {
		return nil, err
	}

	if !request.NoCache {
		entry := cache.Entry{
			URL:       requestURL,
			PostData:  postData,
			Timestamp: time.Now(),
			Headers:   storedHeaders(c.headers),
			Result:    string(body),
		}

		if err = c.cache.Put(fingerprint, entry); err != nil {
			return nil, fmt.Errorf("caching %s: %w", request.Path, err)
		}
	}

	metrics.APIRequests.WithLabelValues(metrics.SourceNetwork).Inc()
	c.logger.Debug("fetched", zap.String("path", request.Path), zap.String("fingerprint", fingerprint))

	if request.Delay > 0 {
		select {
		case <-time.After(request.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return response, nil
}

// storedHeaders is what a cache entry records of the request headers: the
// bearer token never reaches the disk.
func storedHeaders(headers map[string]string) map[string]string {
	if _, ok := headers["authorization"]; !ok {
		return headers
	}

	stored := maps.Clone(headers)
	stored["authorization"] = "Bearer " + redacted

	return stored
}

func (c *Client) buildURL(path string, params url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	requestURL := c.baseURL + path + "?" + c.baseQuery
	if len(params) > 0 {
		requestURL += "&" + params.Encode()
	}

	return requestURL
}

func (c *Client) do(ctx context.Context, path string, requestURL string, form url.Values) ([]byte, error) {
	method := http.MethodGet

	var body io.Reader = http.NoBody
	if form != nil {
		method = http.MethodPost
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", path, err)
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, path, err)
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body

	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, path, err)
		}
		defer gzipReader.Close()

		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrRequestFailed, path, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail := ""

		var env envelope
		if json.Unmarshal(data, &env) == nil {
			detail = env.Meta.ErrorDetail
		}

		return nil, fmt.Errorf("%w: %s %s returned status %d: %s", ErrRequestFailed, method, path, resp.StatusCode, detail)
	}

	return data, nil
}

func unwrapEnvelope(body []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: envelope is not JSON: %w", ErrProtocol, err)
	}

	if len(env.Response) == 0 || string(env.Response) == "null" {
		return nil, fmt.Errorf("%w: envelope has no response field", ErrProtocol)
	}

	return env.Response, nil
}
