package review

import (
	"fmt"
	"strings"
	"unicode"
)

// DefaultMarker is the sentinel data-marking replaces whitespace with. The
// caret is recommended by Microsoft's spotlighting research (arXiv:2403.14720)
// because it rarely appears in natural text and does not collide with
// common markup languages.
const DefaultMarker = "^"

// DefaultUntrustedTag is the default boundary tag Delimit wraps text in.
const DefaultUntrustedTag = "UNTRUSTED_CONTENT"

// Datamark replaces every run of whitespace in text with marker, after
// trimming leading/trailing whitespace. An empty marker falls back to
// DefaultMarker.
func Datamark(text, marker string) string {
	if marker == "" {
		marker = DefaultMarker
	}
	trimmed := strings.TrimSpace(text)
	var b strings.Builder
	inRun := false
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			if !inRun {
				b.WriteString(marker)
				inRun = true
			}
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}

// Delimit wraps text in unique boundary tags, marking it as content the
// reader should treat as untrusted. An empty tag falls back to
// DefaultUntrustedTag.
func Delimit(text, tag string) string {
	if tag == "" {
		tag = DefaultUntrustedTag
	}
	return fmt.Sprintf("<<<%s>>>\n%s\n<<</%s>>>", tag, text, tag)
}

// Method selects a spotlighting transform.
type Method string

const (
	MethodDatamark Method = "datamark"
	MethodDelimit  Method = "delimit"
)

// Spotlight applies method to text, defaulting marker/tag to DefaultMarker
// and DefaultUntrustedTag when empty. An unrecognized method returns an
// error rather than silently passing text through unmarked.
func Spotlight(text string, method Method, marker, tag string) (string, error) {
	switch method {
	case MethodDatamark, "":
		return Datamark(text, marker), nil
	case MethodDelimit:
		return Delimit(text, tag), nil
	default:
		return "", fmt.Errorf("review: unknown spotlight method %q", method)
	}
}
