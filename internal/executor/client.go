package executor

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/mihaisavezi/llmpanel/internal/providers"
)

const maxErrorBody = 64 << 10

// Response is the parsed reply of one successful call.
type Response struct {
	Text  string
	Usage providers.Usage
}

// Client performs single HTTP calls against one target. It never retries.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{httpClient: httpClient, logger: logger}
}

// Complete POSTs req to the target and returns the reply text.
func (c *Client) Complete(ctx context.Context, target providers.Target, req providers.Request) (*Response, error) {
	req.Stream = false

	resp, err := c.do(ctx, target, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, c.transportError(ctx, target, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.apiError(target, resp.StatusCode, body)
	}

	out := &Response{
		Text:  target.Provider.ParseResponse(body),
		Usage: providers.ParseUsage(body),
	}

	if out.Text == "" {
		c.logger.Warn("Empty or unrecognised response body",
			"provider", target.Provider.Name(), "model", target.Model, "bytes", len(body))
	}

	return out, nil
}

// Stream POSTs a streaming request and calls onDelta for every text chunk.
// Adapters without streaming support fall back to Complete with one delta.
func (c *Client) Stream(ctx context.Context, target providers.Target, req providers.Request, onDelta func(string)) (*Response, error) {
	if !target.Provider.SupportsStreaming() {
		out, err := c.Complete(ctx, target, req)
		if err != nil {
			return nil, err
		}

		if out.Text != "" {
			onDelta(out.Text)
		}

		return out, nil
	}

	req.Stream = true

	resp, err := c.do(ctx, target, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	reader, err := decompressReader(resp)
	if err != nil {
		return nil, c.transportError(ctx, target, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(reader, maxErrorBody))
		return nil, c.apiError(target, resp.StatusCode, body)
	}

	// Some vendors ignore "stream": true and answer with one JSON document.
	if ct := resp.Header.Get("Content-Type"); ct != "" && !providers.IsStreamingContentType(ct) {
		body, err := io.ReadAll(reader)
		if err != nil {
			return nil, c.transportError(ctx, target, fmt.Errorf("read response: %w", err))
		}

		out := &Response{Text: target.Provider.ParseResponse(body), Usage: providers.ParseUsage(body)}
		if out.Text != "" {
			onDelta(out.Text)
		}

		return out, nil
	}

	var (
		text    strings.Builder
		used    providers.Usage
		scanner = bufio.NewScanner(reader)
	)

	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || bytes.HasPrefix(line, []byte("event:")) || bytes.HasPrefix(line, []byte(":")) {
			continue
		}

		line = bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))
		if bytes.Equal(line, []byte("[DONE]")) {
			break
		}

		if delta := target.Provider.ParseStreamChunk(line); delta != "" {
			text.WriteString(delta)
			onDelta(delta)
		}

		// Vendors that report usage while streaming do so in the last chunks.
		if u := providers.ParseUsage(line); u.Total() > 0 {
			used = u
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, c.transportError(ctx, target, fmt.Errorf("read stream: %w", err))
	}

	return &Response{Text: text.String(), Usage: used}, nil
}

func (c *Client) do(ctx context.Context, target providers.Target, req providers.Request) (*http.Response, error) {
	if target.Provider == nil {
		return nil, errors.New("no provider selected")
	}

	body, err := target.Provider.FormatRequest(target.Model, req)
	if err != nil {
		return nil, fmt.Errorf("format request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target.Provider.Endpoint(target.Model), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, v := range target.Provider.Headers() {
		httpReq.Header.Set(k, v)
	}

	httpReq.Header.Set("Accept-Encoding", "gzip, br")

	c.logger.Debug("Sending request",
		"provider", target.Provider.Name(), "model", target.Model, "bytes", len(body), "stream", req.Stream)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.transportError(ctx, target, err)
	}

	return resp, nil
}

// transportError keeps cancellation distinct from network failures so the
// executor doesn't retry a call the caller gave up on.
func (c *Client) transportError(ctx context.Context, target providers.Target, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("request cancelled: %w", ctxErr)
	}

	return &NetworkError{Provider: target.Provider.Name(), Model: target.Model, Err: err}
}

func (c *Client) apiError(target providers.Target, status int, body []byte) error {
	apiErr := &APIError{
		StatusCode: status,
		Message:    errorMessage(status, body),
		Provider:   target.Provider.Name(),
		Model:      target.Model,
	}

	c.logger.Debug("Provider returned error", "provider", apiErr.Provider, "model", apiErr.Model,
		"status", status, "message", apiErr.Message)

	return apiErr
}

func readBody(resp *http.Response) ([]byte, error) {
	reader, err := decompressReader(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reader = io.LimitReader(reader, maxErrorBody)
	}

	return io.ReadAll(reader)
}

func decompressReader(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}

		return gzipReader, nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}
