package usecase

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// RefusalMessage is shown for every out-of-scope message, whatever language
// the user wrote in.
const RefusalMessage = "أجاوب فقط عن السياحة في السعودية: المدن، الفعاليات، موسم الرياض، جدة، العلا، المشاريع السياحية، والتأشيرة."

const (
	noResponseText   = "(No response)"
	genericErrorText = "Something went wrong"
)

var boldMarkers = regexp.MustCompile(`\*\*(.*?)\*\*`)

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type userMessager interface {
	UserMessage() string
}

// SystemRules is the instruction sent with every allowed message.
func SystemRules() string {
	return `You are an assistant that ONLY answers questions about tourism in Saudi Arabia. ` +
		`If the user asks about anything else, reply in Arabic with: "` + RefusalMessage + `" and do not add other info.`
}

// normalizeReply strips markdown bold markers and surrounding whitespace.
func normalizeReply(raw string) string {
	text := strings.TrimSpace(boldMarkers.ReplaceAllString(raw, "$1"))
	if text == "" {
		return noResponseText
	}
	return text
}

// failureText is the chat text for a failed turn. Transport failures show
// only the underlying cause, not the request line.
func failureText(err error) string {
	var um userMessager
	if errors.As(err, &um) {
		if msg := strings.TrimSpace(um.UserMessage()); msg != "" {
			return msg
		}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		if msg := strings.TrimSpace(urlErr.Err.Error()); msg != "" {
			return msg
		}
	}
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			return msg
		}
	}
	return genericErrorText
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
