package coingecko_common

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	// Base URL for public API
	COINGECKO_PUBLIC_URL = "https://api.coingecko.com"
	// Base URL for Pro API
	COINGECKO_PRO_URL = "https://pro-api.coingecko.com"
	// APIPrefix is prepended to every endpoint path
	APIPrefix = "/api/v3"
)

// buildURL safely combines a base URL with a path
func buildURL(baseURL, path string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	trimmedPath := strings.TrimLeft(path, "/")

	return baseURL + "/" + trimmedPath
}

// CoingeckoRequestBuilder implements the Builder pattern for price API requests
type CoingeckoRequestBuilder struct {
	baseURL    string
	httpMethod string
	apiPath    string
	params     url.Values
	apiKey     string
	keyType    KeyType
	userAgent  string
	headers    map[string]string
}

// NewCoingeckoRequestBuilder creates a request builder for an endpoint path
// relative to APIPrefix, e.g. "/coins/markets"
func NewCoingeckoRequestBuilder(baseURL, apiPath string) *CoingeckoRequestBuilder {
	rb := &CoingeckoRequestBuilder{
		baseURL:    baseURL,
		apiPath:    APIPrefix + "/" + strings.TrimLeft(apiPath, "/"),
		httpMethod: http.MethodGet,
		params:     url.Values{},
		headers:    make(map[string]string),
		userAgent:  "pricewatch/1.0",
	}

	rb.headers["Accept"] = "application/json"

	return rb
}

// With sets a query parameter
func (rb *CoingeckoRequestBuilder) With(key, value string) *CoingeckoRequestBuilder {
	rb.params.Set(key, value)
	return rb
}

// WithCurrency adds vs_currency parameter, lower-cased
func (rb *CoingeckoRequestBuilder) WithCurrency(currency string) *CoingeckoRequestBuilder {
	if currency != "" {
		rb.params.Set("vs_currency", strings.ToLower(currency))
	}
	return rb
}

// WithIDs adds a comma-joined ids parameter
func (rb *CoingeckoRequestBuilder) WithIDs(ids []string) *CoingeckoRequestBuilder {
	if len(ids) > 0 {
		rb.params.Set("ids", strings.Join(ids, ","))
	}
	return rb
}

// WithApiKey sets the API key and its type
func (rb *CoingeckoRequestBuilder) WithApiKey(apiKey string, keyType KeyType) *CoingeckoRequestBuilder {
	if apiKey != "" {
		rb.apiKey = apiKey
		rb.keyType = keyType
	}
	return rb
}

// WithHeader adds a custom HTTP header
func (rb *CoingeckoRequestBuilder) WithHeader(name, value string) *CoingeckoRequestBuilder {
	rb.headers[name] = value
	return rb
}

// WithUserAgent sets the User-Agent header
func (rb *CoingeckoRequestBuilder) WithUserAgent(userAgent string) *CoingeckoRequestBuilder {
	rb.userAgent = userAgent
	return rb
}

// BuildURL builds the complete URL for the request
func (rb *CoingeckoRequestBuilder) BuildURL() string {
	fullPath := buildURL(rb.baseURL, rb.apiPath)

	query := url.Values{}
	for key, values := range rb.params {
		query[key] = append([]string(nil), values...)
	}

	if rb.apiKey != "" {
		switch rb.keyType {
		case ProKey:
			query.Set("x_cg_pro_api_key", rb.apiKey)
		case DemoKey:
			query.Set("x_cg_demo_api_key", rb.apiKey)
		}
	}

	finalURL := fullPath
	if queryString := query.Encode(); queryString != "" {
		finalURL = fmt.Sprintf("%s?%s", finalURL, queryString)
	}

	return finalURL
}

// Build creates an http.Request bound to ctx
func (rb *CoingeckoRequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, rb.httpMethod, rb.BuildURL(), nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", rb.userAgent)

	for key, value := range rb.headers {
		req.Header.Set(key, value)
	}

	return req, nil
}
