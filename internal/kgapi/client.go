// Package kgapi 是知识图谱问答服务的 HTTP/JSON 客户端
// Package kgapi is the HTTP/JSON client of the knowledge-graph assistant service.
package kgapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"kgchat/internal/config"
	"kgchat/internal/logging"

	"github.com/google/uuid"
)

// maxResponseBytes bounds a single response; graph images arrive inline as data URLs.
const maxResponseBytes = 64 << 20

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient 创建客户端；cookie jar 保存服务端在测试连接后写入的凭证会话
// NewClient creates a client; the cookie jar keeps the credential session the server sets after test-connection.
func NewClient(cfg config.ServerConfig, logger *logging.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("server base url is empty")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	httpClient := &http.Client{Jar: jar}
	if cfg.TimeoutMS > 0 {
		httpClient.Timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// BaseURL 返回服务地址 / BaseURL returns the service address
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) TestConnection(ctx context.Context, apiKey, apiSecret string) error {
	body := map[string]string{"api_key": apiKey, "api_secret": apiSecret}
	return c.do(ctx, OpTestConnection, http.MethodPost, "/api/test_connection", nil, body, nil)
}

func (c *Client) NewSession(ctx context.Context) (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := c.do(ctx, OpNewSession, http.MethodGet, "/api/new_session", nil, nil, &out); err != nil {
		return "", err
	}
	id := strings.TrimSpace(out.SessionID)
	if id == "" {
		return "", &LogicalError{Op: OpNewSession, Message: "empty session_id"}
	}
	return id, nil
}

func (c *Client) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	var out AskResponse
	if err := c.do(ctx, OpAsk, http.MethodPost, "/api/ask", nil, req, &out); err != nil {
		return AskResponse{}, err
	}
	return out, nil
}

func (c *Client) Clear(ctx context.Context, sessionID string) error {
	body := map[string]string{"session_id": sessionID}
	return c.do(ctx, OpClear, http.MethodPost, "/api/clear", nil, body, nil)
}

func (c *Client) Examples(ctx context.Context) ([]string, error) {
	var out struct {
		Examples []string `json:"examples"`
	}
	if err := c.do(ctx, OpExamples, http.MethodGet, "/api/example_questions", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Examples, nil
}

func (c *Client) Export(ctx context.Context, sessionID, format string) (ExportResponse, error) {
	query := url.Values{}
	query.Set("session_id", sessionID)
	query.Set("format", format)
	var out ExportResponse
	if err := c.do(ctx, OpExport, http.MethodGet, "/api/export", query, nil, &out); err != nil {
		return ExportResponse{}, err
	}
	return out, nil
}

func (c *Client) Graph(ctx context.Context, sessionID string) (GraphSnapshot, error) {
	query := url.Values{}
	query.Set("session_id", sessionID)
	var out struct {
		Data GraphSnapshot `json:"data"`
	}
	if err := c.do(ctx, OpGraph, http.MethodGet, "/api/get_graph", query, nil, &out); err != nil {
		return GraphSnapshot{}, err
	}
	return out.Data, nil
}

// do 发送请求；成功与否只由响应体的 success 字段决定，与 HTTP 状态无关
// do sends a request; success is decided by the body's success field, not by the HTTP status.
func (c *Client) do(ctx context.Context, op Op, method, path string, query url.Values, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debugf("%s %s failed after %s (request_id=%s): %v", method, path, time.Since(start).Round(time.Millisecond), requestID, err)
		return &TransportError{Op: op, Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.logger.Debugf("%s %s -> %d in %s (request_id=%s, %d bytes)", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond), requestID, len(data))
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &TransportError{Op: op, Err: fmt.Errorf("status=%d body=%s", resp.StatusCode, truncate(strings.TrimSpace(string(data)), 200))}
		}
		return &TransportError{Op: op, Err: fmt.Errorf("parse response: %w", err)}
	}
	if !env.Success {
		msg := strings.TrimSpace(env.Error)
		if msg == "" {
			msg = strings.TrimSpace(env.Message)
		}
		return &LogicalError{Op: op, Message: msg}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("parse response: %w", err)}
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
