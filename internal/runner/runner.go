package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/codemate/codemate/pkg/logger"
)

const defaultTimeout = 30 * time.Second

// ErrTimeout marks an execution that exceeded the configured deadline.
var ErrTimeout = errors.New("runner: execution timed out")

// Result is the outcome of one execution as reported by the code execution
// service. A non-zero exit code covers compile errors, runtime errors, and
// explicit failure exits alike; the service does not distinguish them.
type Result struct {
	ExitCode int    `json:"exitCode"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// Executor runs a source string under a named runtime. Implementations are
// opaque remote procedures: no retries, no queuing.
type Executor interface {
	Run(ctx context.Context, runtime, source string) (Result, error)
}

// Config holds the upstream execution service settings.
type Config struct {
	// BaseURL is the root of the execution service; each runtime maps to one
	// path beneath it (BaseURL + "/python" and so on).
	BaseURL string
	// Timeout bounds one execution round-trip, hang included.
	Timeout time.Duration
}

// Client forwards execution requests to the upstream service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// NewClient constructs an execution client with a bounded request timeout.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		log:     logger.WithModule("runner"),
	}
}

type runRequest struct {
	Runcode string `json:"runcode"`
}

// Run posts the source to the runtime's endpoint and decodes the execution
// result. Deadline expiry is reported as ErrTimeout so callers can treat it
// as an execution failure rather than a transport fault.
func (c *Client) Run(ctx context.Context, runtime, source string) (Result, error) {
	body, err := json.Marshal(runRequest{Runcode: source})
	if err != nil {
		return Result{}, fmt.Errorf("runner: encode request: %w", err)
	}

	url := c.baseURL + "/" + runtime
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("runner: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			c.log.Warn("execution timed out",
				zap.String("runtime", runtime),
				zap.Duration("elapsed", time.Since(start)),
			)
			return Result{}, ErrTimeout
		}
		return Result{}, fmt.Errorf("runner: execute: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("runner: execution service returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("runner: decode result: %w", err)
	}

	c.log.Debug("execution finished",
		zap.String("runtime", runtime),
		zap.Int("exit_code", result.ExitCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func isClientTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
