package errors

import (
	"strings"
	"unicode"
)

// ValidateHexColor validates a hex color string for the pipeline's color
// inputs (brand colors, palette entries). The accepted forms are #rgb and
// #rrggbb, case-insensitive; the leading '#' is required so that config
// files and CLI flags are unambiguous.
func ValidateHexColor(s string) error {
	if s == "" {
		return New(ErrCodeInvalidColor, "color cannot be empty")
	}
	if !strings.HasPrefix(s, "#") {
		return New(ErrCodeInvalidColor, "color must start with '#': %q", s)
	}
	hex := s[1:]
	if len(hex) != 3 && len(hex) != 6 {
		return New(ErrCodeInvalidColor, "color must be #rgb or #rrggbb: %q", s)
	}
	for _, r := range hex {
		if !isHexDigit(r) {
			return New(ErrCodeInvalidColor, "color contains non-hex digit %q: %q", r, s)
		}
	}
	return nil
}

func isHexDigit(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r >= 'a' && r <= 'f':
		return true
	case r >= 'A' && r <= 'F':
		return true
	}
	return false
}

// ValidateTitle validates a preview title for safety and renderability.
//
// The validation rules are intentionally conservative:
//   - No empty titles
//   - No control characters (they break text layout)
//   - Maximum length of 300 characters (longer titles are a caller bug,
//     truncation is the caller's decision, not ours)
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return New(ErrCodeInvalidInput, "title cannot be empty")
	}
	if len(title) > 300 {
		return New(ErrCodeInvalidInput, "title too long (max 300 characters)")
	}
	for _, r := range title {
		if unicode.IsControl(r) && r != '\n' {
			return New(ErrCodeInvalidInput, "title contains invalid control characters")
		}
	}
	return nil
}

// ValidateDimensions validates target canvas dimensions.
// Zero is allowed (means "use the default"); negatives and absurd sizes are not.
func ValidateDimensions(width, height int) error {
	if width < 0 || height < 0 {
		return New(ErrCodeInvalidInput, "dimensions cannot be negative: %dx%d", width, height)
	}
	const maxDim = 8192
	if width > maxDim || height > maxDim {
		return New(ErrCodeInvalidInput, "dimensions too large (max %d): %dx%d", maxDim, width, height)
	}
	return nil
}
