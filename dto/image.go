package dto

import "encoding/json"

// GenerationRequest 图像生成请求
type GenerationRequest struct {
	Prompt        string   `json:"prompt"`
	Steps         *int     `json:"steps,omitempty" validate:"omitempty,min=1,max=150"`
	GuidanceScale *float64 `json:"guidance_scale,omitempty" validate:"omitempty,min=0,max=50"`
	Width         *int     `json:"width,omitempty" validate:"omitempty,min=64,max=2048"`
	Height        *int     `json:"height,omitempty" validate:"omitempty,min=64,max=2048"`
}

// InferenceParameters 上游推理参数
type InferenceParameters struct {
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
}

// InferenceRequest 上游推理请求体
type InferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters InferenceParameters `json:"parameters"`
}

// GenerationResult 生成结果，成功（Image+Prompt 或 Result）与失败（Error，可选 Detail）互斥
// 通过 NewImageResult、NewJSONResult 或 NewErrorResult 构造
type GenerationResult struct {
	Success bool            `json:"success"`
	Image   string          `json:"image,omitempty"`
	Prompt  string          `json:"prompt,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Detail  any             `json:"detail,omitempty"`
}

func NewImageResult(dataURL string, prompt string) *GenerationResult {
	return &GenerationResult{Success: true, Image: dataURL, Prompt: prompt}
}

func NewJSONResult(raw json.RawMessage) *GenerationResult {
	return &GenerationResult{Success: true, Result: raw}
}

func NewErrorResult(msg string, detail any) *GenerationResult {
	return &GenerationResult{Success: false, Error: msg, Detail: detail}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status               string `json:"status"`
	Service              string `json:"service"`
	CredentialConfigured bool   `json:"credentialConfigured"`
	UpstreamEndpoint     string `json:"upstreamEndpoint"`
}
