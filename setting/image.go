package setting

import (
	"strings"
	"time"

	"github.com/QuantumNous/image-studio/common"
	"github.com/samber/lo"
)

const (
	DefaultServiceName       = "AI Image Generator API"
	DefaultInferenceEndpoint = "https://api-inference.huggingface.co/models/runwayml/stable-diffusion-v1-5"
	DefaultInferenceTimeout  = 120 * time.Second

	MaxPromptLength = 1000

	minInferenceTimeoutSeconds = 1
	maxInferenceTimeoutSeconds = 600
)

// GenerationDefaults 请求未指定时发送给上游的默认生成参数
type GenerationDefaults struct {
	Steps         int
	GuidanceScale float64
	Width         int
	Height        int
}

// ImageConfig 启动时读取一次，按值注入生成服务
type ImageConfig struct {
	ServiceName string
	Token       string
	Endpoint    string
	Timeout     time.Duration
	Defaults    GenerationDefaults
}

func (c ImageConfig) CredentialConfigured() bool {
	return c.Token != ""
}

func DefaultGenerationDefaults() GenerationDefaults {
	return GenerationDefaults{
		Steps:         20,
		GuidanceScale: 7.5,
		Width:         512,
		Height:        512,
	}
}

// LoadImageConfig 从环境变量读取图像配置，缺少 token 不在此报错，由请求时返回
func LoadImageConfig() ImageConfig {
	defaults := DefaultGenerationDefaults()
	timeoutSeconds := common.GetEnvOrDefault("HF_TIMEOUT_SECONDS", int(DefaultInferenceTimeout/time.Second))
	timeoutSeconds = lo.Clamp(timeoutSeconds, minInferenceTimeoutSeconds, maxInferenceTimeoutSeconds)

	return ImageConfig{
		ServiceName: common.GetEnvOrDefaultString("IMAGE_SERVICE_NAME", DefaultServiceName),
		Token:       strings.TrimSpace(common.GetEnvOrDefaultString("HUGGING_FACE_TOKEN", "")),
		Endpoint:    strings.TrimSpace(common.GetEnvOrDefaultString("HF_API_URL", DefaultInferenceEndpoint)),
		Timeout:     time.Duration(timeoutSeconds) * time.Second,
		Defaults: GenerationDefaults{
			Steps:         common.GetEnvOrDefault("IMAGE_DEFAULT_STEPS", defaults.Steps),
			GuidanceScale: common.GetEnvOrDefaultFloat("IMAGE_DEFAULT_GUIDANCE_SCALE", defaults.GuidanceScale),
			Width:         common.GetEnvOrDefault("IMAGE_DEFAULT_WIDTH", defaults.Width),
			Height:        common.GetEnvOrDefault("IMAGE_DEFAULT_HEIGHT", defaults.Height),
		},
	}
}
