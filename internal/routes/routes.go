// Package routes defines HTTP route constants for the application.
package routes

// API Routes
const (
	// Drafts
	APIDraft = "/api/drafts/{kind}"

	// Tip composer
	APITipImages    = "/api/tip/images"
	APITipImage     = "/api/tip/images/{index}"
	APITipSubmit    = "/api/tip/submit"
	APITipBack      = "/api/tip/back"
	APITipPreview   = "/api/tip/preview"
	APITipPublish   = "/api/tip/publish"
	APITipSaveDraft = "/api/tip/save-draft"

	// Guide composer
	APIGuideCover     = "/api/guide/cover"
	APIGuideAdvance   = "/api/guide/advance"
	APIGuideSaveDraft = "/api/guide/save-draft"
	APIGuidePublish   = "/api/guide/publish"

	// Catalog
	APISelection         = "/api/selection"
	APISelectionToggle   = "/api/selection/toggle"
	APISelectionReorder  = "/api/selection/reorder"
	APISelectionContinue = "/api/selection/continue"

	// Engagement and comments
	APIEngagement = "/api/engagement/{kind}/{target}"
	APITipComment = "/api/tips/{id}/comments"

	// Read-back
	APITips     = "/api/tips"
	APITip      = "/api/tips/{id}"
	APIGuide    = "/api/guides/{id}"
	APIGuideTip = "/api/guides/{id}/tips"

	// SSE
	SSEProgress = "/sse/progress"

	// Media served from the filesystem storage
	Media = "/media/"

	HealthPath = "/healthz"
)
