package http_client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/logging"
)

// StatusError 非 2xx/3xx 响应
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http error status=%d body=%s", e.Status, e.Body)
}

type InstrumentedClient struct {
	Name           string
	BaseURL        string
	DefaultHeaders map[string]string
	Client         *http.Client
	Retry          *RetryConfig
	transport      *http.Transport
}

// NewInstrumentedClient 构建带 otelhttp transport 的客户端.
func NewInstrumentedClient(name string, cfg *HTTPClientConfig) *InstrumentedClient {
	cfg.applyDefaults()
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &InstrumentedClient{
		Name:           name,
		BaseURL:        cfg.BaseURL,
		DefaultHeaders: cfg.DefaultHeaders,
		Client:         &http.Client{Timeout: cfg.Timeout, Transport: otelhttp.NewTransport(tr)},
		Retry:          cfg.Retry,
		transport:      tr,
	}
}

func (ic *InstrumentedClient) buildURL(path string, q map[string]string) (string, error) {
	full := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if path != "" && path[0] != '/' {
			path = "/" + path
		}
		full = ic.BaseURL + path
	}
	u, err := url.Parse(full)
	if err != nil {
		return "", err
	}
	if len(q) > 0 {
		qs := u.Query()
		for k, v := range q {
			qs.Set(k, v)
		}
		u.RawQuery = qs.Encode()
	}
	return u.String(), nil
}

// Do 发送请求; body 可为 nil / []byte / string / io.Reader / 任意 JSON 值, out 为 nil 时丢弃响应体.
func (ic *InstrumentedClient) Do(ctx context.Context, method, path string, query, headers map[string]string, body, out interface{}) (int, error) {
	if method == "" {
		method = http.MethodGet
	}
	target, err := ic.buildURL(path, query)
	if err != nil {
		return 0, err
	}

	var (
		reqBody     io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case []byte:
		reqBody = bytes.NewReader(b)
	case string:
		reqBody = strings.NewReader(b)
	case io.Reader:
		reqBody = b
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			return 0, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(buf)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return 0, err
	}
	for k, v := range ic.DefaultHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json, */*")
	}

	start := time.Now()
	resp, err := ic.doWithRetry(ctx, req)
	fields := []zap.Field{
		zap.String("client", ic.Name),
		zap.String("method", method),
		zap.String("url", target),
		zap.Duration("latency", time.Since(start)),
	}
	if err != nil {
		logging.Error(ctx, "http_client_request", append(fields, zap.Error(err))...)
		return 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	logging.Info(ctx, "http_client_request", append(fields, zap.Int("status", resp.StatusCode))...)

	if resp.StatusCode >= 400 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(slurp))}
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	switch o := out.(type) {
	case *[]byte:
		*o, err = io.ReadAll(resp.Body)
	case *string:
		var raw []byte
		raw, err = io.ReadAll(resp.Body)
		*o = string(raw)
	default:
		if err = json.NewDecoder(resp.Body).Decode(out); errors.Is(err, io.EOF) {
			err = nil
		}
		if err != nil {
			err = fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, err
}

func (ic *InstrumentedClient) Get(ctx context.Context, path string, query, headers map[string]string, out interface{}) (int, error) {
	return ic.Do(ctx, http.MethodGet, path, query, headers, nil, out)
}

func (ic *InstrumentedClient) Post(ctx context.Context, path string, body interface{}, headers map[string]string, out interface{}) (int, error) {
	return ic.Do(ctx, http.MethodPost, path, nil, headers, body, out)
}

func (ic *InstrumentedClient) CloseIdleConnections() {
	if ic.transport != nil {
		ic.transport.CloseIdleConnections()
	}
}

// doWithRetry 仅在网络错误或 5xx 时重试, 每次重试通过 GetBody 重建请求体.
func (ic *InstrumentedClient) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ic.Retry == nil || !ic.Retry.Enabled || ic.Retry.MaxAttempts <= 1 {
		return ic.Client.Do(req)
	}
	backoff := ic.Retry.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= ic.Retry.MaxAttempts; attempt++ {
		if attempt > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req.Body = body
		}
		resp, err := ic.Client.Do(req)
		switch {
		case err == nil && resp.StatusCode < 500:
			return resp, nil
		case err == nil:
			lastErr = fmt.Errorf("server error %d", resp.StatusCode)
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		default:
			lastErr = err
			if ctx.Err() != nil {
				return nil, err
			}
		}
		if attempt == ic.Retry.MaxAttempts || (req.Body != nil && req.GetBody == nil) {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = time.Duration(float64(backoff) * ic.Retry.BackoffMultiplier)
		if backoff > ic.Retry.MaxBackoff {
			backoff = ic.Retry.MaxBackoff
		}
	}
	return nil, lastErr
}
