package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const MaxUpstreamBodySize = 20 * 1024 * 1024 // 20MB

var ErrUpstreamBodyTooLarge = errors.New("upstream response exceeds size limit")

// UpstreamResponse 已完整读取的推理接口响应
type UpstreamResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// InferenceClient 推理接口客户端，每次调用只请求一次，不重试
type InferenceClient interface {
	Infer(ctx context.Context, endpoint string, token string, payload []byte) (*UpstreamResponse, error)
}

type HTTPInferenceClient struct {
	client *http.Client
}

func NewHTTPInferenceClient(client *http.Client) *HTTPInferenceClient {
	if client == nil {
		client = GetHttpClient()
	}
	return &HTTPInferenceClient{client: client}
}

func (c *HTTPInferenceClient) Infer(ctx context.Context, endpoint string, token string, payload []byte) (*UpstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxUpstreamBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}
	if len(body) > MaxUpstreamBodySize {
		return nil, ErrUpstreamBodyTooLarge
	}

	return &UpstreamResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
