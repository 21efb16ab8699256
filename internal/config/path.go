package config

// Scratch storage keys. One slot per draft kind, one for the guide selection and one for the
// tip created from inside the guide flow.
const (
	KeyTipDraft       = "draft/tip"
	KeyGuideDraft     = "draft/guide"
	KeyGuideSelection = "guide/selection"
	KeyGuideNewTip    = "guide/new-tip"
)

const (
	DriverSQLite = "sqlite3"
	DriverPgx    = "pgx"
	// DriverMemory keeps content in process memory. Nothing survives a restart.
	DriverMemory = "memory"

	StorageFS     = "fs"
	StorageS3     = "s3"
	StorageMemory = "memory"
)
