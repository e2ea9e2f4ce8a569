// Package remote implements the HTTP client for the intelligence data
// provider. The client only fetches and parses; persistence and retry policy
// belong to the orchestrator, so a failed call never leaves partial writes.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"intelpipeline/internal/config"
	"intelpipeline/internal/domain"
	"intelpipeline/internal/ports"
)

// Version is reported in the User-Agent header.
const Version = "1.0.0"

const (
	serviceName    = "data-provider"
	requestTimeout = 30 * time.Second
)

// ErrorKind classifies a fetch failure.
type ErrorKind string

const (
	// KindTransport covers DNS, connect and timeout failures.
	KindTransport ErrorKind = "transport"
	// KindHTTPStatus covers any non-200 response.
	KindHTTPStatus ErrorKind = "http_status"
	// KindParse covers bodies that are not valid JSON or decode to nothing.
	KindParse ErrorKind = "parse"
)

// FetchError is the typed failure surfaced to the orchestrator.
type FetchError struct {
	Kind       ErrorKind
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Endpoint, e.StatusCode)
	default:
		return fmt.Sprintf("fetch %s: %s: %v", e.Endpoint, e.Kind, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// FailureReason maps the kind onto the orchestration failure taxonomy.
func (e *FetchError) FailureReason() string {
	switch e.Kind {
	case KindHTTPStatus:
		return "HttpStatusError"
	case KindParse:
		return "ParseError"
	default:
		return "TransportError"
	}
}

// Client issues GET requests against the configured provider.
type Client struct {
	baseURL       string
	apiKey        string
	dataPath      string
	companiesPath string
	http          *http.Client
	usage         ports.UsageRecorder
}

var _ ports.IntelligenceSource = (*Client)(nil)

// NewClient builds a provider client from the provider settings. usage may be
// nil.
func NewClient(cfg config.ProviderConfig, usage ports.UsageRecorder) *Client {
	dataPath := cfg.DataPath
	if dataPath == "" {
		dataPath = "/data"
	}
	companiesPath := cfg.CompaniesPath
	if companiesPath == "" {
		companiesPath = "/companies"
	}
	return &Client{
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		dataPath:      dataPath,
		companiesPath: companiesPath,
		http:          &http.Client{Timeout: requestTimeout},
		usage:         usage,
	}
}

// FetchIntelligence retrieves and validates the current article dataset. A
// response without an articles sequence is a parse-kind failure.
func (c *Client) FetchIntelligence(ctx context.Context) (domain.IntelligenceDataset, error) {
	path := c.dataPath
	raw, err := c.getJSON(ctx, path, nil)
	if err != nil {
		return domain.IntelligenceDataset{}, err
	}

	var probe struct {
		Articles *[]domain.Article `json:"articles"`
		Metadata domain.DatasetMetadata
	}
	if err := json.Unmarshal(raw, &probe); err != nil || probe.Articles == nil {
		if err == nil {
			err = errors.New("response has no articles sequence")
		}
		return domain.IntelligenceDataset{}, &FetchError{Kind: KindParse, Endpoint: path, Err: err}
	}

	var ds domain.IntelligenceDataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return domain.IntelligenceDataset{}, &FetchError{Kind: KindParse, Endpoint: path, Err: err}
	}
	for i := range ds.Articles {
		ds.Articles[i].Normalize()
	}
	if ds.Metadata.TotalArticles == 0 {
		ds.Metadata.TotalArticles = len(ds.Articles)
	}
	return ds, nil
}

// FetchCompanies retrieves the tracked-company records. The provider emits
// either an object keyed by company id or a flat array; both shapes are
// normalized to id-keyed records here, at the ingestion boundary.
func (c *Client) FetchCompanies(ctx context.Context) (map[string]domain.Company, error) {
	path := c.companiesPath
	raw, err := c.getJSON(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	companies, err := parseCompanies(raw)
	if err != nil {
		return nil, &FetchError{Kind: KindParse, Endpoint: path, Err: err}
	}
	return companies, nil
}

func parseCompanies(raw json.RawMessage) (map[string]domain.Company, error) {
	trimmed := strings.TrimSpace(string(raw))
	out := make(map[string]domain.Company)

	switch {
	case strings.HasPrefix(trimmed, "{"):
		var byID map[string]domain.Company
		if err := json.Unmarshal(raw, &byID); err != nil {
			return nil, fmt.Errorf("decode company mapping: %w", err)
		}
		for id, company := range byID {
			company.ID = id
			out[id] = company
		}
	case strings.HasPrefix(trimmed, "["):
		var list []domain.Company
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode company list: %w", err)
		}
		for _, company := range list {
			id := company.ID
			if id == "" {
				id = domain.Slug(company.Name)
			}
			company.ID = id
			out[id] = company
		}
	default:
		return nil, errors.New("company payload is neither object nor array")
	}

	return out, nil
}

// getJSON performs one GET and returns the raw body, classifying failures.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Endpoint: path, Err: err}
	}
	req.Header.Set("User-Agent", "intelpipeline/"+Version)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.recordCall(path, 0, elapsed)
		return nil, &FetchError{Kind: KindTransport, Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	c.recordCall(path, resp.StatusCode, elapsed)

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Kind: KindHTTPStatus, Endpoint: path, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Endpoint: path, Err: err}
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" || !json.Valid(body) {
		return nil, &FetchError{Kind: KindParse, Endpoint: path, Err: errors.New("body is not usable JSON")}
	}

	return body, nil
}

func (c *Client) recordCall(endpoint string, status int, elapsed time.Duration) {
	if c.usage != nil {
		c.usage.RecordAPICall(serviceName, endpoint, status, elapsed)
	}
}

// IsKind reports whether err is a FetchError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == kind
}
