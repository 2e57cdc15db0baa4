package constant

type ContextKey string

const (
	ContextKeyRequestId ContextKey = "request_id"
)
