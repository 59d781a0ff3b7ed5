package printful

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"printful-sync/internal/models"
	"printful-sync/internal/util"

	"go.uber.org/zap"
)

// ErrUnavailable is returned when the API answers with a non-200 code.
// The client never retries; transport-level retry is the caller's concern.
var ErrUnavailable = errors.New("printful: resource unavailable")

// Client is a thin client for the Printful store/catalog/order API. Every
// response carries a status code and a result payload; non-200 is surfaced
// as ErrUnavailable with context.
type Client struct {
	baseURL string
	token   string
	storeID string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a Printful API client scoped to one store.
func NewClient(baseURL, accessToken, storeID string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   accessToken,
		storeID: storeID,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  util.GetLogger(),
	}
}

type apiEnvelope struct {
	Code   int             `json:"code"`
	Result json.RawMessage `json:"result"`
	Error  *apiError       `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
}

// do performs one API call and decodes the result payload into out when the
// response code is 200. It returns the API status code in every case.
func (c *Client) do(ctx context.Context, method, path, endpoint string, params url.Values, body, out interface{}) (int, error) {
	u, err := url.Parse(c.baseURL + "/" + path)
	if err != nil {
		return 0, fmt.Errorf("printful: invalid url: %w", err)
	}
	if params == nil {
		params = url.Values{}
	}
	if c.storeID != "" {
		params.Set("store_id", c.storeID)
	}
	u.RawQuery = params.Encode()

	var reqBody *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("printful: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		util.PrintfulRequestDuration.WithLabelValues(endpoint, "error").Observe(time.Since(start).Seconds())
		return 0, fmt.Errorf("printful: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		util.PrintfulRequestDuration.WithLabelValues(endpoint, "error").Observe(time.Since(start).Seconds())
		return resp.StatusCode, fmt.Errorf("printful: decode %s response: %w", endpoint, err)
	}
	if env.Code == 0 {
		env.Code = resp.StatusCode
	}
	util.PrintfulRequestDuration.WithLabelValues(endpoint, strconv.Itoa(env.Code)).Observe(time.Since(start).Seconds())

	if env.Code != http.StatusOK {
		msg := ""
		if env.Error != nil {
			msg = env.Error.Message
		}
		c.logger.Warn("Printful request failed",
			zap.String("endpoint", endpoint),
			zap.Int("code", env.Code),
			zap.String("message", msg))
		return env.Code, fmt.Errorf("printful: %s returned %d: %s: %w", endpoint, env.Code, msg, ErrUnavailable)
	}

	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return env.Code, fmt.Errorf("printful: decode %s result: %w", endpoint, err)
		}
	}
	return env.Code, nil
}

// GetSyncProduct fetches a store product snapshot with its variants.
func (c *Client) GetSyncProduct(ctx context.Context, id string) (*models.RemoteProduct, error) {
	var product models.RemoteProduct
	if _, err := c.do(ctx, http.MethodGet, "store/products/"+id, "store/products", nil, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// GetSyncVariant fetches a single store variant snapshot.
func (c *Client) GetSyncVariant(ctx context.Context, id string) (*models.SyncVariant, error) {
	var variant models.SyncVariant
	if _, err := c.do(ctx, http.MethodGet, "store/variants/"+id, "store/variants", nil, nil, &variant); err != nil {
		return nil, err
	}
	return &variant, nil
}

// GetCatalogVariant fetches the catalog descriptor (size/color/color code)
// for a catalog variant id.
func (c *Client) GetCatalogVariant(ctx context.Context, variantID int64) (*models.CatalogVariantInfo, error) {
	var info models.CatalogVariantInfo
	path := fmt.Sprintf("products/variant/%d", variantID)
	if _, err := c.do(ctx, http.MethodGet, path, "products/variant", nil, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetSizeGuide fetches sizing metadata for a catalog product in centimeters.
func (c *Client) GetSizeGuide(ctx context.Context, catalogProductID int64) (*models.SizeGuide, error) {
	var guide models.SizeGuide
	path := fmt.Sprintf("products/%d/sizes", catalogProductID)
	params := url.Values{"unit": {"cm"}}
	if _, err := c.do(ctx, http.MethodGet, path, "products/sizes", params, nil, &guide); err != nil {
		return nil, err
	}
	return &guide, nil
}
