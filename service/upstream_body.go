package service

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// UpstreamBody 上游响应体，取值为 JSONBody、BinaryBody 或 TextBody
type UpstreamBody interface {
	isUpstreamBody()
}

type JSONBody struct {
	Raw json.RawMessage
}

type BinaryBody struct {
	Data []byte
}

type TextBody struct {
	Text string
}

func (JSONBody) isUpstreamBody()   {}
func (BinaryBody) isUpstreamBody() {}
func (TextBody) isUpstreamBody()   {}

const dataURLPrefix = "data:image/png;base64,"

func isJSONContentType(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json")
}

// classifySuccessBody 解析 200 响应体，声明为 JSON 但无法解析时按图片字节处理
func classifySuccessBody(contentType string, body []byte) UpstreamBody {
	if isJSONContentType(contentType) && gjson.ValidBytes(body) {
		return JSONBody{Raw: body}
	}
	return BinaryBody{Data: body}
}

// classifyErrorBody 解析非 200 响应体，仅用作 detail
func classifyErrorBody(body []byte) UpstreamBody {
	if gjson.ValidBytes(body) {
		return JSONBody{Raw: body}
	}
	return TextBody{Text: string(body)}
}

func errorDetail(body UpstreamBody) any {
	switch b := body.(type) {
	case JSONBody:
		return b.Raw
	case TextBody:
		return b.Text
	case BinaryBody:
		return string(b.Data)
	}
	return nil
}

// upstreamErrorMessage 读取 JSON 对象的 error 字段，空值或假值视为未设置
func upstreamErrorMessage(raw []byte) (string, bool) {
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() {
		return "", false
	}
	field := parsed.Get("error")
	if !truthy(field) {
		return "", false
	}
	if field.Type == gjson.String {
		return field.Str, true
	}
	return field.Raw, true
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	case gjson.True:
		return true
	case gjson.JSON:
		if r.IsArray() {
			return len(r.Array()) > 0
		}
		return len(r.Map()) > 0
	}
	return false
}

func EncodeDataURL(data []byte) string {
	return dataURLPrefix + base64.StdEncoding.EncodeToString(data)
}
