package registryclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/sawpanic/mlserve/internal/mlerrors"
	"github.com/sawpanic/mlserve/internal/modelloader"
)

// retryDelays is the capped exponential backoff schedule from spec §4.A:
// waits of 0.5s, 1s, 2s, 4s between attempts — at most 5 attempts per poll.
var retryDelays = []time.Duration{
	500 * time.Millisecond,
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
}

// HTTPClient implements Client against a JSON REST registry. Transient
// failures (timeouts, 5xx) are retried with the backoff above; NotFound
// and schema errors are terminal for the calling cycle (spec §4.A).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breakers   *breakerManager
}

// HTTPClientConfig configures the registry HTTP client.
type HTTPClientConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RequestsPerSec float64
	Burst          int
}

func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	return &HTTPClient{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		breakers:   newBreakerManager(),
	}
}

// Stats exposes per-call-kind circuit breaker state, surfaced by the HTTP
// layer on GET /ready.
func (c *HTTPClient) Stats() map[string]BreakerStats { return c.breakers.Stats() }

func (c *HTTPClient) ListVersions(ctx context.Context, modelName string) ([]Version, error) {
	var out []Version
	err := c.withRetryAndBreaker(ctx, "list_versions", func(ctx context.Context) error {
		return c.getJSON(ctx, fmt.Sprintf("/models/%s/versions", modelName), &out)
	})
	return out, err
}

func (c *HTTPClient) ResolveAlias(ctx context.Context, modelName, alias string) (Version, error) {
	var out Version
	err := c.withRetryAndBreaker(ctx, "resolve_alias", func(ctx context.Context) error {
		return c.getJSON(ctx, fmt.Sprintf("/models/%s/aliases/%s", modelName, alias), &out)
	})
	return out, err
}

func (c *HTTPClient) FetchArtifact(ctx context.Context, modelName string, version int64) ([]byte, modelloader.SchemaDescriptor, error) {
	var artifact []byte
	var descriptor modelloader.SchemaDescriptor

	err := c.withRetryAndBreaker(ctx, "fetch_artifact", func(ctx context.Context) error {
		url := fmt.Sprintf("%s/models/%s/versions/%d/artifact", c.baseURL, modelName, version)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return mlerrors.NotFound("artifact not found for %s/%d", modelName, version)
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("registry: server error %d fetching artifact", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return mlerrors.Load(nil, "unexpected status %d fetching artifact for %s/%d", resp.StatusCode, modelName, version)
		}

		descriptorHeader := resp.Header.Get("X-Schema-Descriptor")
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		artifact = body

		if descriptorHeader != "" {
			return json.Unmarshal([]byte(descriptorHeader), &descriptor)
		}
		// Schema embedded in a sibling endpoint when not carried in headers.
		return c.getJSON(ctx, fmt.Sprintf("/models/%s/versions/%d/schema", modelName, version), &descriptor)
	})

	return artifact, descriptor, err
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return mlerrors.NotFound("registry: %s not found", path)
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("registry: server error %d on %s", resp.StatusCode, path)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registry: unexpected status %d on %s", resp.StatusCode, path)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return err
	}
	return json.Unmarshal(buf.Bytes(), out)
}

// withRetryAndBreaker runs op under the named call kind's circuit breaker,
// retrying transient failures with the capped exponential backoff from
// spec §4.A. NotFound and load/schema errors are terminal immediately.
func (c *HTTPClient) withRetryAndBreaker(ctx context.Context, callKind string, op func(ctx context.Context) error) error {
	var lastErr error
	attempts := len(retryDelays) + 1

	for attempt := 0; attempt < attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return mlerrors.Timeout("registry rate limiter: %v", err)
		}

		_, err := c.breakers.Execute(callKind, func() (interface{}, error) {
			return nil, op(ctx)
		})

		if err == nil {
			return nil
		}
		lastErr = err

		if isTerminal(err) {
			return err
		}

		if attempt < len(retryDelays) {
			log.Warn().Str("call_kind", callKind).Int("attempt", attempt+1).Err(err).Msg("registry call failed, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelays[attempt]):
			}
		}
	}
	return lastErr
}

func isTerminal(err error) bool {
	var mlErr *mlerrors.Error
	if errors.As(err, &mlErr) {
		return mlErr.Kind == mlerrors.KindNotFound || mlErr.Kind == mlerrors.KindLoad
	}
	return false
}

var _ Client = (*HTTPClient)(nil)
