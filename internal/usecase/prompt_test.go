package usecase

import (
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSystemRules_EmbedsRefusal(t *testing.T) {
	rules := SystemRules()
	require.Contains(t, rules, "ONLY answers questions about tourism in Saudi Arabia")
	require.Contains(t, rules, `"`+RefusalMessage+`"`)
}

func TestNormalizeReply(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"**Riyadh** is great", "Riyadh is great"},
		{"Visit **AlUla** and **Hegra**.", "Visit AlUla and Hegra."},
		{"  plain text\n", "plain text"},
		{"", "(No response)"},
		{" \n ", "(No response)"},
		{"****", "(No response)"},
		{"**unclosed bold", "**unclosed bold"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, normalizeReply(tc.raw), "raw=%q", tc.raw)
	}
}

func TestFailureText(t *testing.T) {
	require.Equal(t, "quota exceeded", failureText(fmt.Errorf("wrapped: %w", &statusError{status: 429, message: "quota exceeded"})))
	require.Equal(t, "boom", failureText(errors.New("boom")))
	require.Equal(t, "Something went wrong", failureText(errors.New("  ")))
	require.Equal(t, "Something went wrong", failureText(nil))
}

func TestFailureText_TransportErrorShowsCause(t *testing.T) {
	err := fmt.Errorf("gemini: request failed: %w", &url.Error{
		Op:  "Post",
		URL: "http://127.0.0.1:1/models/gemini-1.5-flash:generateContent",
		Err: errors.New("dial tcp 127.0.0.1:1: connect: connection refused"),
	})
	require.Equal(t, "dial tcp 127.0.0.1:1: connect: connection refused", failureText(err))

	err = fmt.Errorf("gemini: request failed: %w", &url.Error{Op: "Post", URL: "http://x", Err: errors.New(" ")})
	require.Equal(t, err.Error(), failureText(err))
}

func TestUpstreamStatusCode(t *testing.T) {
	status, ok := upstreamStatusCode(fmt.Errorf("wrapped: %w", &statusError{status: 503}))
	require.True(t, ok)
	require.Equal(t, 503, status)

	_, ok = upstreamStatusCode(errors.New("plain"))
	require.False(t, ok)
}

func TestError_Format(t *testing.T) {
	err := newError(ErrorUpstream, "generate_error", errors.New("boom"))
	require.Equal(t, "usecase: UPSTREAM_ERROR (generate_error): boom", err.Error())
	require.ErrorContains(t, errors.Unwrap(err), "boom")

	err = newError(ErrorInvalidInput, "empty_input", nil)
	require.Equal(t, "usecase: INVALID_INPUT (empty_input)", err.Error())

	var nilErr *Error
	require.Empty(t, nilErr.Error())
	require.NoError(t, nilErr.Unwrap())
}
