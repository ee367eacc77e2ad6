// Package i18n holds the user-facing message catalog and locale negotiation.
package i18n

import (
	"strings"

	"golang.org/x/text/language"

	"imagestudio/internal/domain"
)

const (
	LocaleEN = "en"
	LocaleID = "id"
)

var supported = []language.Tag{language.English, language.Indonesian}

var matcher = language.NewMatcher(supported)

var catalog = map[string]map[string]string{
	LocaleEN: {
		domain.CodeKeyRequired:      "Please enter your API key.",
		domain.CodeInvalidKey:       "Invalid API key. Please check your key and try again.",
		domain.CodeNetwork:          "Network error. Please check your connection and try again.",
		domain.CodeMissingInput:     "Please upload at least one image and enter a prompt.",
		domain.CodeInvalidImage:     "Only image files can be uploaded.",
		domain.CodeInvalidIndex:     "That image no longer exists.",
		domain.CodePromptTooLong:    "Prompts are limited to 1000 characters.",
		domain.CodeRefineFailed:     "Failed to analyze the images.",
		domain.CodeGenerateFailed:   "Failed to generate the image.",
		domain.CodeUnexpected:       "Something went wrong while generating the image. Please try again.",
		domain.CodeBusy:             "Please wait for the current request to finish.",
		domain.CodeUnauthorized:     "Please enter your API key first.",
		domain.CodeNoGeneratedImage: "There is no generated image to download yet.",
		domain.CodeDownloadFailed:   "Failed to download the generated image.",
		domain.CodeBadRequest:       "The request could not be read.",
		domain.CodeRateLimited:      "Too many requests. Please wait a moment and try again.",
	},
	LocaleID: {
		domain.CodeKeyRequired:      "Silakan masukkan API key Anda.",
		domain.CodeInvalidKey:       "API key tidak valid. Periksa kembali lalu coba lagi.",
		domain.CodeNetwork:          "Terjadi gangguan jaringan. Periksa koneksi Anda lalu coba lagi.",
		domain.CodeMissingInput:     "Unggah minimal satu gambar dan isi prompt.",
		domain.CodeInvalidImage:     "Hanya file gambar yang dapat diunggah.",
		domain.CodeInvalidIndex:     "Gambar tersebut sudah tidak ada.",
		domain.CodePromptTooLong:    "Prompt maksimal 1000 karakter.",
		domain.CodeRefineFailed:     "Gagal menganalisis gambar.",
		domain.CodeGenerateFailed:   "Gagal membuat gambar.",
		domain.CodeUnexpected:       "Terjadi kesalahan saat membuat gambar. Silakan coba lagi.",
		domain.CodeBusy:             "Tunggu hingga permintaan sebelumnya selesai.",
		domain.CodeUnauthorized:     "Masukkan API key terlebih dahulu.",
		domain.CodeNoGeneratedImage: "Belum ada gambar yang bisa diunduh.",
		domain.CodeDownloadFailed:   "Gagal mengunduh gambar.",
		domain.CodeBadRequest:       "Permintaan tidak dapat dibaca.",
		domain.CodeRateLimited:      "Terlalu banyak permintaan. Tunggu sebentar lalu coba lagi.",
	},
}

// Match negotiates a supported locale from raw preferences such as an
// X-Locale value or an Accept-Language header. Empty input yields "".
func Match(prefs ...string) string {
	var cleaned []string
	for _, p := range prefs {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return ""
	}
	tag, _ := language.MatchStrings(matcher, cleaned...)
	base, _ := tag.Base()
	if base.String() == LocaleID {
		return LocaleID
	}
	return LocaleEN
}

// Message returns the catalog text for code, falling back to English and
// finally to the code itself.
func Message(locale, code string) string {
	if msgs, ok := catalog[Normalize(locale)]; ok {
		if msg, ok := msgs[code]; ok {
			return msg
		}
	}
	if msg, ok := catalog[LocaleEN][code]; ok {
		return msg
	}
	return code
}

// Render turns err into the single user-visible message.
func Render(locale string, err *domain.Error) string {
	if err == nil {
		return ""
	}
	if detail := strings.TrimSpace(err.Detail); detail != "" {
		return detail
	}
	return Message(locale, err.Code)
}

// Normalize maps any locale string onto a supported catalog key.
func Normalize(locale string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(locale)), LocaleID) {
		return LocaleID
	}
	return LocaleEN
}
