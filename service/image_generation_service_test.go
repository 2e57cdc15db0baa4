package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/QuantumNous/image-studio/dto"
	"github.com/QuantumNous/image-studio/setting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const (
	testToken    = "hf_test_token_123"
	testEndpoint = "http://inference.test/models/sd"
)

type fakeInferenceClient struct {
	calls     int
	endpoint  string
	token     string
	payload   []byte
	inferFunc func(ctx context.Context) (*UpstreamResponse, error)
}

func (f *fakeInferenceClient) Infer(ctx context.Context, endpoint string, token string, payload []byte) (*UpstreamResponse, error) {
	f.calls++
	f.endpoint = endpoint
	f.token = token
	f.payload = payload
	if f.inferFunc != nil {
		return f.inferFunc(ctx)
	}
	return &UpstreamResponse{StatusCode: http.StatusOK, ContentType: "image/png", Body: []byte("png")}, nil
}

func respondWith(status int, contentType string, body []byte) *fakeInferenceClient {
	return &fakeInferenceClient{
		inferFunc: func(ctx context.Context) (*UpstreamResponse, error) {
			return &UpstreamResponse{StatusCode: status, ContentType: contentType, Body: body}, nil
		},
	}
}

func testConfig() setting.ImageConfig {
	return setting.ImageConfig{
		ServiceName: setting.DefaultServiceName,
		Token:       testToken,
		Endpoint:    testEndpoint,
		Timeout:     5 * time.Second,
		Defaults:    setting.DefaultGenerationDefaults(),
	}
}

func newTestService(client InferenceClient) *ImageGenerationService {
	return NewImageGenerationService(testConfig(), client, nil)
}

func handleJSON(s *ImageGenerationService, body string) (*dto.GenerationResult, int) {
	return s.Handle(context.Background(), "application/json", []byte(body))
}

func TestHandleRejectsInvalidBodies(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
	}{
		{"empty body", "application/json", "", http.StatusUnsupportedMediaType},
		{"malformed json", "application/json", "{prompt:", http.StatusUnsupportedMediaType},
		{"json array", "application/json", `["a cat"]`, http.StatusUnsupportedMediaType},
		{"json null", "application/json", "null", http.StatusUnsupportedMediaType},
		{"empty object", "application/json", "{}", http.StatusUnsupportedMediaType},
		{"wrong content type", "text/plain", `{"prompt":"a cat"}`, http.StatusUnsupportedMediaType},
		{"missing prompt", "application/json", `{"steps":10}`, http.StatusBadRequest},
		{"numeric prompt", "application/json", `{"prompt":42}`, http.StatusBadRequest},
		{"null prompt", "application/json", `{"prompt":null}`, http.StatusBadRequest},
		{"empty prompt", "application/json", `{"prompt":""}`, http.StatusBadRequest},
		{"whitespace prompt", "application/json", `{"prompt":"  \n\t "}`, http.StatusBadRequest},
		{"non numeric steps", "application/json", `{"prompt":"a cat","steps":"many"}`, http.StatusBadRequest},
		{"steps out of range", "application/json", `{"prompt":"a cat","steps":1000}`, http.StatusBadRequest},
		{"width too small", "application/json", `{"prompt":"a cat","width":8}`, http.StatusBadRequest},
		{"body over size limit", "application/json", `{"prompt":"` + strings.Repeat("a", MaxRequestBodySize) + `"}`, http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeInferenceClient{}
			s := newTestService(client)

			result, status := s.Handle(context.Background(), tt.contentType, []byte(tt.body))

			assert.Equal(t, tt.wantStatus, status)
			assert.False(t, result.Success)
			assert.NotEmpty(t, result.Error)
			assert.Equal(t, 0, client.calls)
		})
	}
}

func TestHandleRejectsLongPrompt(t *testing.T) {
	client := &fakeInferenceClient{}
	s := newTestService(client)

	body, err := json.Marshal(map[string]string{"prompt": strings.Repeat("a", setting.MaxPromptLength+1)})
	require.NoError(t, err)
	result, status := handleJSON(s, string(body))

	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "too long")
	assert.Equal(t, 0, client.calls)
}

func TestHandleAcceptsPromptAtLimitAfterTrim(t *testing.T) {
	client := &fakeInferenceClient{}
	s := newTestService(client)

	prompt := "  " + strings.Repeat("é", setting.MaxPromptLength) + "  "
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	require.NoError(t, err)
	result, status := handleJSON(s, string(body))

	assert.Equal(t, http.StatusOK, status)
	assert.True(t, result.Success)
	assert.Equal(t, strings.TrimSpace(prompt), result.Prompt)
}

func TestHandleWithoutTokenNeverCallsUpstream(t *testing.T) {
	client := &fakeInferenceClient{}
	cfg := testConfig()
	cfg.Token = ""
	s := NewImageGenerationService(cfg, client, nil)

	for i := 0; i < 3; i++ {
		result, status := handleJSON(s, `{"prompt":"a lighthouse at dusk"}`)
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "not configured")
	}
	assert.Equal(t, 0, client.calls)
}

func TestHandleSendsPromptAndDefaults(t *testing.T) {
	client := &fakeInferenceClient{}
	s := newTestService(client)

	_, status := handleJSON(s, `{"prompt":"  a red fox  "}`)
	require.Equal(t, http.StatusOK, status)

	require.Equal(t, 1, client.calls)
	assert.Equal(t, testEndpoint, client.endpoint)
	assert.Equal(t, testToken, client.token)

	payload := gjson.ParseBytes(client.payload)
	assert.Equal(t, "a red fox", payload.Get("inputs").String())
	assert.Equal(t, int64(20), payload.Get("parameters.num_inference_steps").Int())
	assert.Equal(t, 7.5, payload.Get("parameters.guidance_scale").Float())
	assert.Equal(t, int64(512), payload.Get("parameters.width").Int())
	assert.Equal(t, int64(512), payload.Get("parameters.height").Int())
}

func TestHandleAppliesParameterOverrides(t *testing.T) {
	client := &fakeInferenceClient{}
	s := newTestService(client)

	_, status := handleJSON(s, `{"prompt":"a red fox","steps":30,"guidance_scale":9.5,"width":768}`)
	require.Equal(t, http.StatusOK, status)

	payload := gjson.ParseBytes(client.payload)
	assert.Equal(t, int64(30), payload.Get("parameters.num_inference_steps").Int())
	assert.Equal(t, 9.5, payload.Get("parameters.guidance_scale").Float())
	assert.Equal(t, int64(768), payload.Get("parameters.width").Int())
	assert.Equal(t, int64(512), payload.Get("parameters.height").Int())
}

func TestHandleBinaryImageRoundTrip(t *testing.T) {
	image := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0xff}
	s := newTestService(respondWith(http.StatusOK, "image/png", image))

	result, status := handleJSON(s, `{"prompt":"a cat"}`)

	require.Equal(t, http.StatusOK, status)
	assert.True(t, result.Success)
	assert.Equal(t, "a cat", result.Prompt)
	assert.Empty(t, result.Error)
	require.True(t, strings.HasPrefix(result.Image, "data:image/png;base64,"))
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(result.Image, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, image, decoded)
}

func TestHandleEmptyBinaryBody(t *testing.T) {
	s := newTestService(respondWith(http.StatusOK, "image/png", nil))

	result, status := handleJSON(s, `{"prompt":"a cat"}`)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "empty content")
}

func TestHandleJSONErrorField(t *testing.T) {
	s := newTestService(respondWith(http.StatusOK, "application/json", []byte(`{"error":"x"}`)))

	result, status := handleJSON(s, `{"prompt":"a cat"}`)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.False(t, result.Success)
	assert.Equal(t, "x", result.Error)
	assert.Empty(t, result.Image)
}

func TestHandleJSONSuccessIsWrappedVerbatim(t *testing.T) {
	raw := `{"generated":[{"url":"https://cdn.test/a.png"}],"error":""}`
	s := newTestService(respondWith(http.StatusOK, "application/json; charset=utf-8", []byte(raw)))

	result, status := handleJSON(s, `{"prompt":"a cat"}`)

	require.Equal(t, http.StatusOK, status)
	assert.True(t, result.Success)
	assert.JSONEq(t, raw, string(result.Result))

	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"result":`+raw+`}`, string(encoded))
}

func TestHandleUnparseableJSONFallsBackToBinary(t *testing.T) {
	body := []byte("not json at all")
	s := newTestService(respondWith(http.StatusOK, "application/json", body))

	result, status := handleJSON(s, `{"prompt":"a cat"}`)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, EncodeDataURL(body), result.Image)
}

func TestHandleModelLoadingAlways503(t *testing.T) {
	bodies := []struct {
		contentType string
		body        string
	}{
		{"application/json", `{"error":"Model is currently loading","estimated_time":20}`},
		{"text/plain", "busy"},
		{"", ""},
	}
	for _, b := range bodies {
		s := newTestService(respondWith(http.StatusServiceUnavailable, b.contentType, []byte(b.body)))

		result, status := handleJSON(s, `{"prompt":"a cat"}`)

		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "try again")
		assert.Nil(t, result.Detail)
	}
}

func TestHandleMirrorsUpstreamErrorStatus(t *testing.T) {
	t.Run("json detail", func(t *testing.T) {
		s := newTestService(respondWith(http.StatusUnauthorized, "application/json", []byte(`{"error":"Invalid token"}`)))

		result, status := handleJSON(s, `{"prompt":"a cat"}`)

		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "upstream API error: 401", result.Error)
		encoded, err := json.Marshal(result)
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":false,"error":"upstream API error: 401","detail":{"error":"Invalid token"}}`, string(encoded))
	})

	t.Run("text detail", func(t *testing.T) {
		s := newTestService(respondWith(http.StatusBadGateway, "text/html", []byte("<html>bad gateway</html>")))

		result, status := handleJSON(s, `{"prompt":"a cat"}`)

		assert.Equal(t, http.StatusBadGateway, status)
		assert.Equal(t, "upstream API error: 502", result.Error)
		assert.Equal(t, "<html>bad gateway</html>", result.Detail)
	})
}

func TestHandleNonErrorUpstreamStatusBecomesBadGateway(t *testing.T) {
	tests := []struct {
		name     string
		upstream int
	}{
		{"no content", http.StatusNoContent},
		{"accepted", http.StatusAccepted},
		{"redirect", http.StatusFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(respondWith(tt.upstream, "", nil))

			result, status := handleJSON(s, `{"prompt":"a cat"}`)

			assert.Equal(t, http.StatusBadGateway, status)
			assert.False(t, result.Success)
			assert.Equal(t, fmt.Sprintf("upstream API error: %d", tt.upstream), result.Error)
		})
	}
}

func TestHandleTimeout(t *testing.T) {
	client := &fakeInferenceClient{
		inferFunc: func(ctx context.Context) (*UpstreamResponse, error) {
			return nil, &url.Error{Op: "Post", URL: testEndpoint, Err: context.DeadlineExceeded}
		},
	}
	s := newTestService(client)

	result, status := handleJSON(s, `{"prompt":"a cat"}`)

	assert.Equal(t, http.StatusRequestTimeout, status)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "timed out")
}

func TestHandleNetworkErrorDoesNotLeakToken(t *testing.T) {
	client := &fakeInferenceClient{
		inferFunc: func(ctx context.Context) (*UpstreamResponse, error) {
			return nil, &url.Error{
				Op:  "Post",
				URL: testEndpoint,
				Err: errors.New("dial tcp 10.0.0.1:443: connect: connection refused (auth " + testToken + ")"),
			}
		},
	}
	s := newTestService(client)

	result, status := handleJSON(s, `{"prompt":"a cat"}`)

	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, result.Error, "connection refused")
	assert.NotContains(t, result.Error, testToken)
	assert.NotContains(t, result.Error, testEndpoint)
}

func TestHandleTokenAcrossTruncationBoundaryIsRedacted(t *testing.T) {
	for _, padding := range []int{diagnosticMaxLength - 10, diagnosticMaxLength - 1, diagnosticMaxLength - len(testToken)} {
		t.Run(fmt.Sprintf("padding %d", padding), func(t *testing.T) {
			client := &fakeInferenceClient{
				inferFunc: func(ctx context.Context) (*UpstreamResponse, error) {
					return nil, &url.Error{Op: "Post", URL: testEndpoint, Err: errors.New(strings.Repeat("x", padding) + testToken)}
				},
			}
			s := newTestService(client)

			result, status := handleJSON(s, `{"prompt":"a cat"}`)

			assert.Equal(t, http.StatusBadGateway, status)
			assert.NotContains(t, result.Error, testToken[:8])
		})
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	// "é" is two bytes; a cut at byte 2 would split it
	got := truncate("aé-tail", 2)
	assert.Equal(t, "a...", got)
	assert.True(t, utf8.ValidString(got))
}

func TestPreviewRedactsBeforeTruncating(t *testing.T) {
	s := newTestService(&fakeInferenceClient{})
	body := []byte(strings.Repeat("x", responsePreviewSize-5) + testToken)

	got := s.preview(&UpstreamResponse{StatusCode: http.StatusBadRequest, ContentType: "application/json", Body: body})

	assert.NotContains(t, got, testToken[:5])
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), responsePreviewSize+len("..."))
}

func TestHandleClientCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeInferenceClient{
		inferFunc: func(callCtx context.Context) (*UpstreamResponse, error) {
			cancel()
			<-callCtx.Done()
			return nil, &url.Error{Op: "Post", URL: testEndpoint, Err: callCtx.Err()}
		},
	}
	s := newTestService(client)

	result, status := s.Handle(ctx, "application/json", []byte(`{"prompt":"a cat"}`))

	assert.Equal(t, http.StatusBadGateway, status)
	assert.False(t, result.Success)
}

func TestHandleRecoversFromPanic(t *testing.T) {
	client := &fakeInferenceClient{
		inferFunc: func(ctx context.Context) (*UpstreamResponse, error) {
			panic("secret internal state")
		},
	}
	s := newTestService(client)

	result, status := handleJSON(s, `{"prompt":"a cat"}`)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.False(t, result.Success)
	assert.Equal(t, "Internal server error.", result.Error)
	assert.NotContains(t, result.Error, "secret")
}

func TestHealthReflectsConfigWithoutCalls(t *testing.T) {
	client := &fakeInferenceClient{}
	s := newTestService(client)

	first := s.Health()
	second := s.Health()

	assert.Equal(t, first, second)
	assert.Equal(t, "healthy", first.Status)
	assert.True(t, first.CredentialConfigured)
	assert.Equal(t, testEndpoint, first.UpstreamEndpoint)
	assert.Equal(t, setting.DefaultServiceName, first.Service)
	assert.Equal(t, 0, client.calls)

	cfg := testConfig()
	cfg.Token = ""
	assert.False(t, NewImageGenerationService(cfg, client, nil).Health().CredentialConfigured)
}

func TestResultIsSuccessXorError(t *testing.T) {
	cases := []*fakeInferenceClient{
		respondWith(http.StatusOK, "image/png", []byte("img")),
		respondWith(http.StatusOK, "application/json", []byte(`{"error":"boom"}`)),
		respondWith(http.StatusOK, "application/json", []byte(`[1,2,3]`)),
		respondWith(http.StatusServiceUnavailable, "", nil),
		respondWith(http.StatusNotFound, "text/plain", []byte("missing")),
	}
	for _, client := range cases {
		result, _ := handleJSON(newTestService(client), `{"prompt":"a cat"}`)
		if result.Success {
			assert.Empty(t, result.Error)
			assert.Nil(t, result.Detail)
		} else {
			assert.NotEmpty(t, result.Error)
			assert.Empty(t, result.Image)
			assert.Empty(t, result.Result)
		}
	}
}

func TestValidatePrompt(t *testing.T) {
	tests := []struct {
		name    string
		prompt  string
		want    string
		wantErr error
	}{
		{"trims whitespace", "  sunset  ", "sunset", nil},
		{"empty", "", "", ErrEmptyPrompt},
		{"blank", "\t \n", "", ErrEmptyPrompt},
		{"too long", strings.Repeat("x", setting.MaxPromptLength+1), "", ErrPromptTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidatePrompt(tt.prompt)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
