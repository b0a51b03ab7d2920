package services

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Limits on upload metadata.
const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 2000
	MaxFileNameLength    = 255
)

// UploadMetadata is what a caller declares about an uploaded file.
type UploadMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	FileName    string `json:"file_name"`
	MediaType   string `json:"media_type"`
}

func (m UploadMetadata) normalized() UploadMetadata {
	m.Title = strings.TrimSpace(m.Title)
	m.Description = strings.TrimSpace(m.Description)
	m.FileName = filepath.Base(strings.TrimSpace(m.FileName))
	if m.FileName == "." || m.FileName == string(filepath.Separator) {
		m.FileName = ""
	}
	m.MediaType = strings.TrimSpace(m.MediaType)
	return m
}

// Validate checks the metadata; the file name must carry one of allowed
// extensions (compared case-insensitively). An empty allowed list accepts
// any extension.
func (m UploadMetadata) Validate(allowed []string) error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Title, validation.Required, validation.RuneLength(1, MaxTitleLength)),
		validation.Field(&m.Description, validation.RuneLength(0, MaxDescriptionLength)),
		validation.Field(&m.FileName,
			validation.Required,
			validation.RuneLength(1, MaxFileNameLength),
			validation.By(extensionIn(allowed)),
		),
		validation.Field(&m.MediaType, validation.Length(0, 255)),
	)
}

func extensionIn(allowed []string) validation.RuleFunc {
	return func(value any) error {
		name, _ := value.(string)
		if len(allowed) == 0 {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(name))
		if ext == "" {
			return errors.New("file has no extension")
		}
		if !slices.Contains(allowed, ext) {
			return fmt.Errorf("extension %s is not allowed", ext)
		}
		return nil
	}
}
