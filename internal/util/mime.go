package util

import (
	"mime"
	"path/filepath"
	"strings"
)

// FallbackContentType is used when nothing can be guessed from a file name.
const FallbackContentType = "application/octet-stream"

// extraTypes covers extensions that the platform MIME tables often miss.
var extraTypes = map[string]string{
	".txt":   "text/plain",
	".md":    "text/markdown",
	".jsonl": "application/x-ndjson",
	".yaml":  "application/yaml",
	".yml":   "application/yaml",
	".heic":  "image/heic",
	".heif":  "image/heif",
	".avif":  "image/avif",
}

// ContentTypeFor guesses the MIME type of a file from its name.
// It never returns an empty string.
func ContentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return FallbackContentType
	}

	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	if ct, ok := extraTypes[ext]; ok {
		return ct
	}
	return FallbackContentType
}

// BaseMIME strips parameters such as charset from a content type.
func BaseMIME(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType
	}
	return mediaType
}
