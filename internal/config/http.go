package config

const (
	HCType        = "Content-Type"
	HCacheControl = "Cache-Control"

	CTypeJSON        = "application/json"
	CTypeEventStream = "text/event-stream"
)
