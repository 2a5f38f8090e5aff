package client

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

	"github.com/rs/zerolog"

	"github.com/jacokyle01/live-analysis/models"
)

// Client talks to a running evaluation server.
type Client struct {
	serverURL string
	http      *http.Client
	log       zerolog.Logger
}

// NewClient creates a new evaluation client
func NewClient(serverURL string, log zerolog.Logger) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		http:      &http.Client{Timeout: 30 * time.Second},
		log:       log,
	}
}

// StartEvaluation asks the server to analyse fen and returns the cycle id.
func (c *Client) StartEvaluation(ctx context.Context, fen string) (string, error) {
	body, err := json.Marshal(map[string]string{"fen": fen})
	if err != nil {
		return "", err
	}

	var resp struct {
		Cycle string `json:"cycle"`
	}
	if err := c.do(ctx, http.MethodPost, "/evaluation/start", body, &resp); err != nil {
		return "", err
	}
	return resp.Cycle, nil
}

// Evaluation returns the server's latest evaluation, or nil if the engine
// has not reported yet.
func (c *Client) Evaluation(ctx context.Context) (*models.Evaluation, error) {
	var ev models.Evaluation
	if err := c.do(ctx, http.MethodGet, "/evaluation", nil, &ev); err != nil {
		if errors.Is(err, errNoContent) {
			return nil, nil
		}
		return nil, err
	}
	return &ev, nil
}

func (c *Client) StopEvaluation(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/evaluation/stop", nil, nil)
}

// Watch starts an evaluation of fen and calls fn with every new evaluation
// until ctx is done, fn returns false, or the game is over.
func (c *Client) Watch(ctx context.Context, fen string, interval time.Duration, fn func(*models.Evaluation) bool) error {
	cycle, err := c.StartEvaluation(ctx, fen)
	if err != nil {
		return err
	}
	c.log.Info().Str("cycle", cycle).Str("fen", fen).Msg("watching evaluation")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastDepth, lastLines int
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		ev, err := c.Evaluation(ctx)
		if err != nil {
			return err
		}
		if ev == nil {
			c.log.Debug().Msg("no evaluation yet, waiting...")
			continue
		}

		if ev.Outcome != nil {
			fn(ev)
			return nil
		}
		if ev.Depth == lastDepth && len(ev.Continuations) == lastLines {
			continue
		}
		lastDepth, lastLines = ev.Depth, len(ev.Continuations)

		if !fn(ev) {
			return c.StopEvaluation(ctx)
		}
	}
}

var errNoContent = errors.New("no content")

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return errNoContent
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
