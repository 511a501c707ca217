package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	log "github.com/sirupsen/logrus"

	"github.com/kdimtricp/faik/internal/detection"
)

func errInvalidOutput(n int) error {
	return fmt.Errorf("model returned %d outputs, expected 2", n)
}

// HTTPClient scores windows against a model inference server.
//
//	POST {base}/classify  {"model", "sample_rate", "samples"} -> {"logits"} or {"probabilities"}
//	GET  {base}/info      -> ModelInfo
type HTTPClient struct {
	baseURL    string
	modelName  string
	httpClient *http.Client
	config     *Config
	logger     log.FieldLogger
}

func NewHTTPClient(config *Config) (*HTTPClient, error) {
	if config.BaseURL == "" {
		return nil, errors.New("classifier base URL is required")
	}
	if config.ModelName == "" {
		config.ModelName = DefaultModelName
	}

	return &HTTPClient{
		baseURL:   strings.TrimRight(config.BaseURL, "/"),
		modelName: config.ModelName,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
		logger: log.WithField("component", "classifier"),
	}, nil
}

type classifyRequest struct {
	Model      string    `json:"model"`
	SampleRate int       `json:"sample_rate"`
	Samples    []float32 `json:"samples"`
}

type classifyResponse struct {
	Logits        []float64 `json:"logits"`
	Probabilities []float64 `json:"probabilities"`
	Error         *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *HTTPClient) Classify(ctx context.Context, window []float32, sampleRate int) (detection.Probabilities, error) {
	jsonData, err := json.Marshal(classifyRequest{
		Model:      c.modelName,
		SampleRate: sampleRate,
		Samples:    window,
	})
	if err != nil {
		return detection.Probabilities{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp classifyResponse
	if err := c.do(ctx, http.MethodPost, "/classify", jsonData, &resp); err != nil {
		return detection.Probabilities{}, err
	}

	if resp.Error != nil {
		return detection.Probabilities{}, fmt.Errorf("classifier error: %s", resp.Error.Message)
	}

	switch {
	case len(resp.Logits) > 0:
		return FromLogits(resp.Logits)
	case len(resp.Probabilities) == 2:
		return detection.Probabilities{AIGenerated: resp.Probabilities[0], Real: resp.Probabilities[1]}, nil
	case len(resp.Probabilities) > 0:
		return detection.Probabilities{}, errInvalidOutput(len(resp.Probabilities))
	default:
		return detection.Probabilities{}, errors.New("classifier response has no outputs")
	}
}

func (c *HTTPClient) Describe(ctx context.Context) (*ModelInfo, error) {
	var info ModelInfo
	if err := c.do(ctx, http.MethodGet, "/info", nil, &info); err != nil {
		return nil, err
	}
	if info.ModelName == "" {
		info.ModelName = c.modelName
	}
	if info.NumClasses == 0 {
		info.NumClasses = len(ClassMapping)
	}
	if info.ClassMapping == nil {
		info.ClassMapping = ClassMapping
	}
	return &info, nil
}

// do sends one request, retrying transport failures, 429 and 5xx responses
// with Fibonacci backoff.
func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	backoff := retry.WithMaxRetries(c.config.MaxRetries, retry.NewFibonacci(c.backoff()))

	var unavailable bool
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.WithError(err).Debug("classifier request failed, retrying")
			return retry.RetryableError(fmt.Errorf("failed to make request: %w", err))
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("failed to read response: %w", err))
		}

		unavailable = resp.StatusCode == http.StatusServiceUnavailable
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			c.logger.WithField("status", resp.StatusCode).Debug("classifier unavailable, retrying")
			return retry.RetryableError(fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, truncate(respBody)))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, truncate(respBody))
		}

		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
		return nil
	})

	if err != nil && unavailable {
		return fmt.Errorf("%w: %w", detection.ErrModelUnavailable, err)
	}
	return err
}

func (c *HTTPClient) backoff() time.Duration {
	if c.config.RetryBackoff <= 0 {
		return NewConfig().RetryBackoff
	}
	return c.config.RetryBackoff
}

func truncate(b []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
