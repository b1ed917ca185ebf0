package auth

const (
	ContextKeyAPIKey = "api_key"

	jsonKeyError = "error"

	headerAPIKey = "X-API-Key"
)

const (
	msgMissingAPIKey = "missing API key"
)
