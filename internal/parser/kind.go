package parser

import "strings"

// Kind is the classification of a push notification. The string value is
// the single-letter wire code.
type Kind string

const (
	KindAlert Kind = "A"
	KindInfo  Kind = "I"
	KindError Kind = "E"
)

// ParseKind maps a wire code to a Kind. Codes are matched case-insensitively;
// anything other than A, I or E is reported as not ok.
func ParseKind(code string) (Kind, bool) {
	switch Kind(strings.ToUpper(strings.TrimSpace(code))) {
	case KindAlert:
		return KindAlert, true
	case KindInfo:
		return KindInfo, true
	case KindError:
		return KindError, true
	default:
		return "", false
	}
}

func (k Kind) Code() string {
	return string(k)
}

func (k Kind) Name() string {
	switch k {
	case KindAlert:
		return "alert"
	case KindInfo:
		return "info"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

func (k Kind) IsInfo() bool {
	return k == KindInfo
}
