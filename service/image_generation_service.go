package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"net/url"
	"reflect"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/QuantumNous/image-studio/common"
	"github.com/QuantumNous/image-studio/dto"
	"github.com/QuantumNous/image-studio/metrics"
	"github.com/QuantumNous/image-studio/setting"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

const (
	MaxRequestBodySize = 1 << 20 // 1MB

	responsePreviewSize = 1000
	diagnosticMaxLength = 200
)

// ImageGenerationService 图像生成代理服务
type ImageGenerationService struct {
	config   setting.ImageConfig
	client   InferenceClient
	recorder *metrics.ImageRecorder
	validate *validator.Validate
}

// NewImageGenerationService 创建图像生成服务实例，recorder 可以为 nil
func NewImageGenerationService(config setting.ImageConfig, client InferenceClient, recorder *metrics.ImageRecorder) *ImageGenerationService {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return &ImageGenerationService{
		config:   config,
		client:   client,
		recorder: recorder,
		validate: validate,
	}
}

// Health 返回配置状态，不访问推理接口
func (s *ImageGenerationService) Health() dto.HealthResponse {
	return dto.HealthResponse{
		Status:               "healthy",
		Service:              s.config.ServiceName,
		CredentialConfigured: s.config.CredentialConfigured(),
		UpstreamEndpoint:     s.config.Endpoint,
	}
}

// Handle 解析原始请求体并调用 Generate，panic 转为通用 500 结果
func (s *ImageGenerationService) Handle(ctx context.Context, contentType string, body []byte) (result *dto.GenerationResult, status int) {
	defer func() {
		if r := recover(); r != nil {
			common.LogError(ctx, fmt.Sprintf("panic during image generation: %v\n%s", r, string(debug.Stack())))
			result, status = s.fail(ctx, newInternalError(fmt.Errorf("panic: %v", r)))
		}
	}()

	req, genErr := ParseGenerationRequest(contentType, body)
	if genErr != nil {
		return s.fail(ctx, genErr)
	}
	return s.Generate(ctx, req)
}

// Generate 校验请求，调用一次推理接口并对响应分类
func (s *ImageGenerationService) Generate(ctx context.Context, req *dto.GenerationRequest) (*dto.GenerationResult, int) {
	// 1. 参数验证
	prompt, err := ValidatePrompt(req.Prompt)
	if err != nil {
		msg := "Prompt is required and must be a non-empty string."
		if errors.Is(err, ErrPromptTooLong) {
			msg = fmt.Sprintf("Prompt is too long (max %d characters).", setting.MaxPromptLength)
		}
		return s.fail(ctx, newValidationError(http.StatusBadRequest, msg, err))
	}
	if genErr := s.validateParameters(req); genErr != nil {
		return s.fail(ctx, genErr)
	}
	// 2. 检查凭证
	if !s.config.CredentialConfigured() {
		return s.fail(ctx, &GenerationError{
			Kind:    ErrorKindConfiguration,
			Status:  http.StatusInternalServerError,
			Message: "Inference API token not configured. Set HUGGING_FACE_TOKEN in environment.",
			Err:     ErrTokenNotConfigured,
		})
	}

	// 3. 构建请求体
	payload, err := common.Marshal(dto.InferenceRequest{
		Inputs:     prompt,
		Parameters: s.resolveParameters(req),
	})
	if err != nil {
		return s.fail(ctx, newInternalError(fmt.Errorf("marshal request body failed: %w", err)))
	}

	// 4. 调用推理接口
	callCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.client.Infer(callCtx, s.config.Endpoint, s.config.Token, payload)
	if err != nil {
		s.recorder.ObserveUpstream(0, time.Since(start))
		return s.fail(ctx, s.transportError(ctx, err))
	}
	s.recorder.ObserveUpstream(resp.StatusCode, time.Since(start))
	common.LogDebug(ctx, "inference API responded: status=%d content_type=%q preview=%s",
		resp.StatusCode, resp.ContentType, s.preview(resp))

	// 5. 响应分类
	result, genErr := s.classifyResponse(prompt, resp)
	if genErr != nil {
		return s.fail(ctx, genErr)
	}
	s.recorder.ObserveOutcome(metrics.OutcomeSuccess)
	return result, http.StatusOK
}

// ParseGenerationRequest 解析 JSON 对象请求体，此处只检查 prompt 类型，内容校验在 Generate 中完成
func ParseGenerationRequest(contentType string, body []byte) (*dto.GenerationRequest, *GenerationError) {
	invalidBody := newValidationError(http.StatusUnsupportedMediaType,
		"Request body must be valid JSON with a 'prompt' field.", ErrInvalidBody)

	if !isJSONMediaType(contentType) || len(body) == 0 || len(body) > MaxRequestBodySize {
		return nil, invalidBody
	}
	var fields map[string]any
	if err := common.Unmarshal(body, &fields); err != nil || len(fields) == 0 {
		return nil, invalidBody
	}

	prompt, ok := fields["prompt"].(string)
	if !ok {
		return nil, newValidationError(http.StatusBadRequest,
			"Prompt is required and must be a non-empty string.", ErrEmptyPrompt)
	}

	var req dto.GenerationRequest
	if err := common.Unmarshal(body, &req); err != nil {
		return nil, newValidationError(http.StatusBadRequest,
			"Generation parameters must be numbers.", fmt.Errorf("%w: %v", ErrInvalidParameters, err))
	}
	req.Prompt = prompt
	return &req, nil
}

// ValidatePrompt 校验并返回去除首尾空白后的提示词
func ValidatePrompt(prompt string) (string, error) {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return "", ErrEmptyPrompt
	}
	if utf8.RuneCountInString(trimmed) > setting.MaxPromptLength {
		return "", fmt.Errorf("%w: %d characters (max %d)", ErrPromptTooLong, utf8.RuneCountInString(trimmed), setting.MaxPromptLength)
	}
	return trimmed, nil
}

func (s *ImageGenerationService) validateParameters(req *dto.GenerationRequest) *GenerationError {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return newInternalError(fmt.Errorf("validate parameters: %w", err))
	}
	problems := lo.Map(validationErrors, func(fe validator.FieldError, _ int) string {
		return fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
	})
	return newValidationError(http.StatusBadRequest,
		"Invalid generation parameters: "+strings.Join(problems, "; "),
		fmt.Errorf("%w: %v", ErrInvalidParameters, err))
}

func (s *ImageGenerationService) resolveParameters(req *dto.GenerationRequest) dto.InferenceParameters {
	defaults := s.config.Defaults
	return dto.InferenceParameters{
		NumInferenceSteps: lo.FromPtrOr(req.Steps, defaults.Steps),
		GuidanceScale:     lo.FromPtrOr(req.GuidanceScale, defaults.GuidanceScale),
		Width:             lo.FromPtrOr(req.Width, defaults.Width),
		Height:            lo.FromPtrOr(req.Height, defaults.Height),
	}
}

func (s *ImageGenerationService) classifyResponse(prompt string, resp *UpstreamResponse) (*dto.GenerationResult, *GenerationError) {
	switch resp.StatusCode {
	case http.StatusOK:
		switch body := classifySuccessBody(resp.ContentType, resp.Body).(type) {
		case JSONBody:
			if msg, ok := upstreamErrorMessage(body.Raw); ok {
				return nil, &GenerationError{
					Kind:    ErrorKindUpstream,
					Status:  http.StatusInternalServerError,
					Message: msg,
					Err:     ErrUpstreamReported,
				}
			}
			return dto.NewJSONResult(body.Raw), nil
		case BinaryBody:
			if len(body.Data) == 0 {
				return nil, &GenerationError{
					Kind:    ErrorKindUpstream,
					Status:  http.StatusInternalServerError,
					Message: "Inference API returned empty content.",
					Err:     ErrEmptyUpstreamContent,
				}
			}
			return dto.NewImageResult(EncodeDataURL(body.Data), prompt), nil
		default:
			return nil, newInternalError(fmt.Errorf("unexpected upstream body %T", body))
		}
	case http.StatusServiceUnavailable:
		return nil, &GenerationError{
			Kind:    ErrorKindTransient,
			Status:  http.StatusServiceUnavailable,
			Message: "Model is loading. Please try again in a few moments.",
			Err:     ErrModelLoading,
		}
	default:
		status := resp.StatusCode
		if status < http.StatusBadRequest || status > 599 {
			status = http.StatusBadGateway
		}
		return nil, &GenerationError{
			Kind:    ErrorKindUpstream,
			Status:  status,
			Message: fmt.Sprintf("upstream API error: %d", resp.StatusCode),
			Detail:  errorDetail(classifyErrorBody(resp.Body)),
			Err:     ErrUpstreamStatus,
		}
	}
}

// transportError 将调用失败映射为 408（超时）或 502，ctx 为入站请求的 context，取消表示客户端已断开
func (s *ImageGenerationService) transportError(ctx context.Context, err error) *GenerationError {
	if errors.Is(ctx.Err(), context.Canceled) {
		common.LogInfo(ctx, "client disconnected before the inference API responded")
		return &GenerationError{
			Kind:    ErrorKindTransient,
			Status:  http.StatusBadGateway,
			Message: "Request was canceled before the inference API responded.",
			Err:     fmt.Errorf("%w: %v", ErrRequestCanceled, err),
		}
	}
	if isTimeout(err) {
		return &GenerationError{
			Kind:    ErrorKindTransient,
			Status:  http.StatusRequestTimeout,
			Message: "Request to inference API timed out. Try again later.",
			Err:     fmt.Errorf("%w: %v", ErrUpstreamTimeout, s.redact(err.Error())),
		}
	}
	return &GenerationError{
		Kind:    ErrorKindUpstream,
		Status:  http.StatusBadGateway,
		Message: "Network error when calling inference API: " + truncate(s.redact(shortDiagnostic(err)), diagnosticMaxLength),
		Err:     errors.New(s.redact(err.Error())),
	}
}

func (s *ImageGenerationService) fail(ctx context.Context, genErr *GenerationError) (*dto.GenerationResult, int) {
	s.recorder.ObserveOutcome(genErr.Kind.outcome())
	if genErr.Kind == ErrorKindInternal {
		common.LogError(ctx, fmt.Sprintf("image generation failed: %v", genErr))
	} else {
		common.LogWarn(ctx, fmt.Sprintf("image generation failed: %v", genErr))
	}
	return genErr.ToResult(), genErr.Status
}

// redact 去除凭证，所有返回给调用方或写入日志的文本都要经过它
func (s *ImageGenerationService) redact(msg string) string {
	if s.config.Token == "" {
		return msg
	}
	return strings.ReplaceAll(msg, s.config.Token, "[REDACTED]")
}

func (s *ImageGenerationService) preview(resp *UpstreamResponse) string {
	if resp.StatusCode == http.StatusOK && !isJSONContentType(resp.ContentType) {
		return fmt.Sprintf("<%d bytes of binary content>", len(resp.Body))
	}
	return truncate(s.redact(string(resp.Body)), responsePreviewSize)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// shortDiagnostic 去掉 *url.Error 附带的请求 URL
func shortDiagnostic(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}

// truncate 截断到最多 limit 字节，不拆分多字节字符。调用方需先脱敏再截断
func truncate(msg string, limit int) string {
	if len(msg) <= limit {
		return msg
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + "..."
}

func isJSONMediaType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" ||
		(strings.HasPrefix(mediaType, "application/") && strings.HasSuffix(mediaType, "+json"))
}
