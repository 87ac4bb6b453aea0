// File path: internal/vector/qdrant.go
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/openbiomed/litrag/internal/common"
)

var errNotFound = errors.New("qdrant: not found")

// Point is a single stored vector with its payload. Score is only
// populated on query responses.
type Point struct {
	ID      string                 `json:"id"`
	Vector  []float32              `json:"vector,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Score   float64                `json:"score,omitempty"`
}

// Store is the ANN oracle the retrieval engine talks to. A nil or
// unavailable store degrades dense retrieval to the local fallback path.
type Store interface {
	Available() bool
	Collection() string
	EnsureCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, points []Point) error
	Query(ctx context.Context, vector []float32, limit int) ([]Point, error)
	ScrollAll(ctx context.Context) ([]Point, error)
	Recreate(ctx context.Context, dim int) error
	Close() error
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	collection string
	apiKey     string
	scrollPage int

	mu        sync.Mutex
	available bool
	checked   bool
}

func NewClient(cfg Config) *Client {
	cfg.applyDefaults()
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		baseURL:    fmt.Sprintf("%s://%s:%s", cfg.Scheme, cfg.Host, cfg.Port),
		collection: cfg.Collection,
		apiKey:     cfg.APIKey,
		scrollPage: cfg.ScrollPageSize,
	}
}

func NewFromEnv() (*Client, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewClient(cfg), nil
}

func (c *Client) Collection() string { return c.collection }

// Available reports whether the server answered a readiness probe at
// least once. The result is cached; a later network failure flips it
// back to false on the failing call.
func (c *Client) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.checked {
		return c.available
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c.available = c.probe(ctx) == nil
	c.checked = true
	return c.available
}

func (c *Client) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/collections", nil)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant: readiness probe returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) ensureReady(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			}
		}
		if lastErr = c.probe(ctx); lastErr == nil {
			c.mu.Lock()
			c.available = true
			c.checked = true
			c.mu.Unlock()
			return nil
		}
	}
	c.markUnavailable()
	return fmt.Errorf("qdrant not reachable at %s: %w", c.baseURL, lastErr)
}

func (c *Client) markUnavailable() {
	c.mu.Lock()
	c.available = false
	c.checked = true
	c.mu.Unlock()
}

func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode qdrant request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.markUnavailable()
		return fmt.Errorf("qdrant request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read qdrant response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return fmt.Errorf("qdrant %s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode qdrant response: %w", err)
		}
	}
	return nil
}

// EnsureCollection creates the collection when it does not exist yet.
func (c *Client) EnsureCollection(ctx context.Context, dim int) error {
	if err := c.ensureReady(ctx); err != nil {
		return err
	}
	err := c.doRequest(ctx, http.MethodGet, "/collections/"+c.collection, nil, nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errNotFound) {
		return err
	}
	return c.createCollection(ctx, dim)
}

func (c *Client) createCollection(ctx context.Context, dim int) error {
	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	if err := c.doRequest(ctx, http.MethodPut, "/collections/"+c.collection, body, nil); err != nil {
		return fmt.Errorf("create collection %s: %w", c.collection, err)
	}
	common.Logger().Info("vector: collection created", "collection", c.collection, "dim", dim)
	return nil
}

func (c *Client) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	if err := c.ensureReady(ctx); err != nil {
		return err
	}
	type qdrantPoint struct {
		ID      string                 `json:"id"`
		Vector  []float32              `json:"vector"`
		Payload map[string]interface{} `json:"payload,omitempty"`
	}
	batch := make([]qdrantPoint, 0, len(points))
	for _, p := range points {
		batch = append(batch, qdrantPoint{ID: p.ID, Vector: p.Vector, Payload: p.Payload})
	}
	body := map[string]interface{}{"points": batch}
	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	if err := c.doRequest(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

type searchResponse struct {
	Result []struct {
		ID      interface{}            `json:"id"`
		Score   float64                `json:"score"`
		Payload map[string]interface{} `json:"payload"`
	} `json:"result"`
}

func (c *Client) Query(ctx context.Context, vector []float32, limit int) ([]Point, error) {
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}
	body := map[string]interface{}{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var resp searchResponse
	path := fmt.Sprintf("/collections/%s/points/search", c.collection)
	if err := c.doRequest(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	points := make([]Point, 0, len(resp.Result))
	for _, hit := range resp.Result {
		points = append(points, Point{
			ID:      pointID(hit.ID),
			Score:   hit.Score,
			Payload: hit.Payload,
		})
	}
	return points, nil
}

type scrollResponse struct {
	Result struct {
		Points []struct {
			ID      interface{}            `json:"id"`
			Vector  []float32              `json:"vector"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"points"`
		NextPageOffset interface{} `json:"next_page_offset"`
	} `json:"result"`
}

// ScrollAll pages through every point in the collection. Used to
// rehydrate the in-process corpus after a restart.
func (c *Client) ScrollAll(ctx context.Context) ([]Point, error) {
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}
	var all []Point
	var offset interface{}
	path := fmt.Sprintf("/collections/%s/points/scroll", c.collection)
	for {
		body := map[string]interface{}{
			"limit":        c.scrollPage,
			"with_payload": true,
			"with_vector":  true,
		}
		if offset != nil {
			body["offset"] = offset
		}
		var resp scrollResponse
		if err := c.doRequest(ctx, http.MethodPost, path, body, &resp); err != nil {
			if errors.Is(err, errNotFound) {
				return nil, nil
			}
			return nil, err
		}
		for _, p := range resp.Result.Points {
			all = append(all, Point{
				ID:      pointID(p.ID),
				Vector:  p.Vector,
				Payload: p.Payload,
			})
		}
		if resp.Result.NextPageOffset == nil {
			break
		}
		offset = resp.Result.NextPageOffset
	}
	return all, nil
}

// Recreate drops and recreates the collection, wiping every point.
func (c *Client) Recreate(ctx context.Context, dim int) error {
	if err := c.ensureReady(ctx); err != nil {
		return err
	}
	if err := c.doRequest(ctx, http.MethodDelete, "/collections/"+c.collection, nil, nil); err != nil && !errors.Is(err, errNotFound) {
		return fmt.Errorf("drop collection %s: %w", c.collection, err)
	}
	return c.createCollection(ctx, dim)
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Qdrant returns numeric ids as JSON numbers and uuids as strings.
func pointID(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
