package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/cloudcore-storefront/pkg/errors"
)

const (
	DefaultBaseURL   = "https://admin.refabry.com/api"
	DefaultAssetHost = "https://admin.refabry.com"

	productsPath    = "all/product/get"
	orderCreatePath = "public/order/create"
	productImageDir = "storage/product"

	responseBodyReadLimit int64 = 1 << 20
	errorBodyReadLimit    int64 = 1024
)

// Client talks to the merchant's commerce API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	assetHost  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithAssetHost overrides the host product images are served from.
func WithAssetHost(host string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(host); trimmed != "" {
			c.assetHost = trimmed
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds a commerce API client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    DefaultBaseURL,
		assetHost:  DefaultAssetHost,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// ListProducts fetches the full catalog.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(productsPath), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build catalog request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute catalog request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "catalog request failed")
	}

	var apiResp struct {
		Data struct {
			Data []Product `json:"data"`
		} `json:"data"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyReadLimit)).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode catalog response")
	}
	if apiResp.Data.Data == nil {
		return []Product{}, nil
	}
	return apiResp.Data.Data, nil
}

// CreateOrder posts an order. Any HTTP answer is returned as an OrderResponse so
// the caller decides acceptance; only transport failures become errors.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal order request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(orderCreatePath), bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build order request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute order request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read order response")
	}

	out := &OrderResponse{HTTPStatus: resp.StatusCode}
	var apiResp struct {
		Status  json.RawMessage `json:"status"`
		Message json.RawMessage `json:"message"`
	}
	// only a JSON object counts as an answer; null, arrays and scalars are malformed
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Unmarshal(trimmed, &apiResp) == nil {
		out.Decoded = true
		var flag bool
		if json.Unmarshal(apiResp.Status, &flag) == nil {
			out.Status = &flag
		}
		var msg string
		if json.Unmarshal(apiResp.Message, &msg) == nil {
			out.Message = msg
		}
	}
	return out, nil
}

// ImageURL resolves a product image name against the asset host.
func (c *Client) ImageURL(image string) string {
	image = strings.TrimLeft(strings.TrimSpace(image), "/")
	if image == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(c.assetHost, "/"), productImageDir, image)
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
