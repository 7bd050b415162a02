package event

import (
	"fmt"

	apperrors "github.com/louisbranch/groupchat/internal/platform/errors"
)

var (
	// ErrUnknownEventType reports a tag with no registered codec entry.
	ErrUnknownEventType = apperrors.New(apperrors.CodeUnknownEventType, "unknown event type")
	// ErrMalformedPayload reports fields that do not parse for a known tag.
	ErrMalformedPayload = apperrors.New(apperrors.CodeMalformedPayload, "malformed event payload")
)

func unknownType(typ Type) error {
	return apperrors.WithMetadata(
		apperrors.CodeUnknownEventType,
		fmt.Sprintf("unknown event type %q", typ),
		map[string]string{"EventType": string(typ)},
	)
}

func malformed(format string, args ...any) error {
	return apperrors.New(apperrors.CodeMalformedPayload, fmt.Sprintf(format, args...))
}

// Malformed wraps cause as a malformed payload failure for typ. Causes that
// already carry that code are returned unchanged.
func Malformed(typ Type, cause error) error {
	if cause == nil {
		return nil
	}
	if apperrors.CodeOf(cause) == apperrors.CodeMalformedPayload {
		return cause
	}
	return apperrors.WrapWithMetadata(
		apperrors.CodeMalformedPayload,
		fmt.Sprintf("decode %s: %v", typ, cause),
		map[string]string{"EventType": string(typ)},
		cause,
	)
}
