package composer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/debemdeboas/roteiro/internal/draft"
	"github.com/debemdeboas/roteiro/internal/errors"
	"github.com/debemdeboas/roteiro/internal/model"
)

const (
	MinTitleLength       = 5
	MinDescriptionLength = 20
)

// Field names used as keys of validation errors.
const (
	FieldImages      = "images"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldLocation    = "location"
	FieldCity        = "city"
	FieldCategory    = "category"
)

// length counts characters, not bytes, ignoring surrounding whitespace.
func length(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

// ValidateTip returns the failing fields of a tip about to be published. An empty map means
// the tip is valid.
func ValidateTip(t *draft.TipDraft) map[string]string {
	fields := make(map[string]string)
	if len(t.Media) == 0 {
		fields[FieldImages] = "attach at least one image"
	}
	checkText(fields, t.Title, t.Description)
	if length(t.Location) == 0 {
		fields[FieldLocation] = "location is required"
	}
	if !model.IsTipCategory(t.Category) {
		fields[FieldCategory] = "choose a category"
	}
	return fields
}

func ValidateGuide(g *draft.GuideDraft) map[string]string {
	fields := make(map[string]string)
	checkText(fields, g.Title, g.Description)
	if length(g.City) == 0 {
		fields[FieldCity] = "city is required"
	}
	if !model.IsGuideCategory(g.Category) {
		fields[FieldCategory] = "choose a category"
	}
	return fields
}

// ValidateDraftSave holds the looser rule for saving as draft: title and description only
// need to be present.
func ValidateDraftSave(title, description string) map[string]string {
	fields := make(map[string]string)
	if length(title) == 0 {
		fields[FieldTitle] = "title is required"
	}
	if length(description) == 0 {
		fields[FieldDescription] = "description is required"
	}
	return fields
}

func checkText(fields map[string]string, title, description string) {
	if length(title) < MinTitleLength {
		fields[FieldTitle] = fmt.Sprintf("title must have at least %d characters", MinTitleLength)
	}
	if length(description) < MinDescriptionLength {
		fields[FieldDescription] = fmt.Sprintf("description must have at least %d characters", MinDescriptionLength)
	}
}

const MaxCommentLength = 2000

// ValidateComment returns the trimmed comment text, or a validation error on the "text" field.
func ValidateComment(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.NewValidation(map[string]string{"text": "comment is empty"})
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return "", errors.NewValidation(map[string]string{"text": fmt.Sprintf("comment must have at most %d characters", MaxCommentLength)})
	}
	return text, nil
}
