package personio

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/personio-adapter/internal/httpclient"
	"github.com/Checker-Finance/personio-adapter/internal/rate"
)

// Client wraps low-level HTTP communication with the Personio API: JSON
// calls go through the retrying executor, binary downloads through a
// dedicated streaming path with a longer timeout.
type Client struct {
	logger    *zap.Logger
	exec      *httpclient.Executor
	tokens    *TokenManager
	baseURL   string
	downloads *http.Client
}

// NewClient constructs a Personio HTTP client. baseURL is the API root
// (e.g. https://api.personio.de).
func NewClient(logger *zap.Logger, tokens *TokenManager, rateMgr *rate.Manager, baseURL string) *Client {
	return &Client{
		logger:    logger,
		exec:      httpclient.New(logger, tokens, rateMgr, &http.Client{Timeout: 30 * time.Second}),
		tokens:    tokens,
		baseURL:   strings.TrimRight(baseURL, "/"),
		downloads: &http.Client{Timeout: 60 * time.Second},
	}
}

// endpointURL builds a full URL from a relative endpoint, defaulting to the
// v1 API when no version prefix is given.
func (c *Client) endpointURL(endpoint string) string {
	endpoint = strings.TrimLeft(endpoint, "/")
	if !strings.HasPrefix(endpoint, "v1/") && !strings.HasPrefix(endpoint, "v2/") {
		endpoint = "v1/" + endpoint
	}
	return c.baseURL + "/" + endpoint
}

// Get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values, out any) error {
	spec := httpclient.RequestSpec{
		Method: http.MethodGet,
		URL:    c.endpointURL(endpoint),
		Query:  params,
	}
	return c.exec.DoJSON(ctx, spec, rateKey(endpoint), out)
}

// EmployeeDocuments lists document metadata for one employee via the v1
// per-employee documents path.
func (c *Client) EmployeeDocuments(ctx context.Context, employeeID string) ([]DocumentMeta, error) {
	var env documentListEnvelope
	if err := c.Get(ctx, "company/employees/"+employeeID+"/documents", nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// rateKey scopes the client-side limiter by endpoint family so document
// downloads cannot starve the employee list calls.
func rateKey(endpoint string) string {
	if strings.Contains(endpoint, "/documents") {
		return "documents"
	}
	return "employees"
}
