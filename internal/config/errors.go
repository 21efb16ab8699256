package config

const (
	// Config errors
	ErrWriteConfigContentFmt = "Failed to write config content: %v"
	ErrUnknownValueFmt       = "invalid %s: unknown value %q"
	ErrNegativeValueFmt      = "invalid %s: %d"
	ErrRequiredFmt           = "%s is required"

	// Publish errors
	ErrNoDraftFmt      = "no %s draft in progress"
	ErrEmptySelection  = "select at least one tip before publishing"
	ErrSelectionCapFmt = "Maximum of %d tips per guide"
)
