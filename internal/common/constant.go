// Package common contains shared constants and sentinel errors used across
// docanchor components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// Upload metadata keys sent alongside the raw file bytes.
const (
	TitleHeaderName       = "x-doc-title"
	DescriptionHeaderName = "x-doc-description"
	FileNameHeaderName    = "x-doc-filename"
	MediaTypeHeaderName   = "x-doc-media-type"
)
