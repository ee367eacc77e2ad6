package studio

import (
	"encoding/base64"
	"io"
	"mime"
	"net/http"
	"strings"

	"imagestudio/internal/domain"
)

// EncodeDataURL reads an uploaded file into a base64 data URL. declaredType
// is the part's Content-Type; the bytes are sniffed only when it is missing
// or application/octet-stream. Anything that is not image/* is rejected.
func EncodeDataURL(r io.Reader, declaredType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", domain.Unexpected(err)
	}
	if len(data) == 0 {
		return "", domain.Validation(domain.CodeInvalidImage)
	}
	mediaType := imageMediaType(declaredType)
	if mediaType == "" && isGeneric(declaredType) {
		mediaType = imageMediaType(http.DetectContentType(data))
	}
	if mediaType == "" {
		return "", domain.Validation(domain.CodeInvalidImage)
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// IsImageDataURL reports whether s is a well-formed base64 data URI whose
// media type is an image.
func IsImageDataURL(s string) bool {
	if err := validate.Var(s, "datauri"); err != nil {
		return false
	}
	header, _, _ := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	mediaType, _, _ := strings.Cut(header, ";")
	return imageMediaType(mediaType) != ""
}

func imageMediaType(raw string) string {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(raw))
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return ""
	}
	return mediaType
}

func isGeneric(declared string) bool {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(declared))
	return err != nil || mediaType == "application/octet-stream"
}
