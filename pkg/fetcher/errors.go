package fetcher

import "strings"

// Kind partitions gateway failures into the categories the HTTP surface maps
// to status codes.
type Kind int

const (
	// KindValidation covers requests rejected before any external call.
	KindValidation Kind = iota
	// KindStaging covers credential files that could not be written.
	KindStaging
	// KindDownload covers extractor-reported failures to fetch the resource.
	KindDownload
	// KindExtraction covers unsupported URLs and unavailable content.
	KindExtraction
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStaging:
		return "staging"
	case KindDownload:
		return "download"
	case KindExtraction:
		return "extraction"
	}
	return "unknown"
}

// Error is a classified gateway failure. Message carries the text intended
// for the client; Err retains the underlying cause for server-side logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Kind.String() + " failed: " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// extractionMarkers are substrings of extractor messages that signal the URL
// or content itself is the problem rather than the transfer.
var extractionMarkers = []string{
	"unsupported url",
	"is not a valid url",
	"video unavailable",
	"unable to extract",
	"no video formats",
	"requested format is not available",
	"this video is private",
}

// classify converts an extractor-reported message into the taxonomy. An empty
// message means the failure did not come from the extractor and stays
// unclassified (surfaced as an internal error upstream).
func classify(msg string, cause error) error {
	if msg == "" {
		return cause
	}
	lower := strings.ToLower(msg)
	for _, marker := range extractionMarkers {
		if strings.Contains(lower, marker) {
			return &Error{Kind: KindExtraction, Message: msg, Err: cause}
		}
	}
	return &Error{Kind: KindDownload, Message: msg, Err: cause}
}

// extractorMessage pulls the last ERROR line the extractor printed, if any.
func extractorMessage(stderr string, cause error) string {
	lines := strings.Split(stderr, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if rest, ok := strings.CutPrefix(line, "ERROR:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	if cause != nil {
		if idx := strings.Index(cause.Error(), "ERROR:"); idx >= 0 {
			return strings.TrimSpace(cause.Error()[idx+len("ERROR:"):])
		}
	}
	return ""
}
