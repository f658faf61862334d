package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"tourism-chat/internal/domain"
	"tourism-chat/internal/usecase"
)

type stubAsker struct {
	turn  domain.Turn
	err   error
	in    string
	calls int
}

func (s *stubAsker) Ask(_ context.Context, text string) (domain.Turn, error) {
	s.calls++
	s.in = text
	return s.turn, s.err
}

func makeEvent(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/chat",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil)
	require.Error(t, err)
}

func TestHandle_Resolved(t *testing.T) {
	uc := &stubAsker{turn: domain.Turn{ID: "turn-1", Input: "tell me about Riyadh", Allowed: true, Response: "Riyadh is great", State: domain.StateResolved}}
	h, err := NewHandler(uc, WithAllowedOrigin("https://visit.example"))
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"message":"tell me about Riyadh"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "tell me about Riyadh", uc.in)
	require.Equal(t, "https://visit.example", resp.Headers["Access-Control-Allow-Origin"])
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])

	out := parseBody[chatResponse](t, resp.Body)
	require.Equal(t, chatResponse{TurnID: "turn-1", State: "resolved", Allowed: true, Reply: "Riyadh is great"}, out)
}

func TestHandle_Refused(t *testing.T) {
	uc := &stubAsker{turn: domain.Turn{ID: "turn-2", Response: usecase.RefusalMessage, State: domain.StateRefused}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"message":"what is the weather in Paris"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := parseBody[chatResponse](t, resp.Body)
	require.Equal(t, "refused", out.State)
	require.False(t, out.Allowed)
	require.Equal(t, usecase.RefusalMessage, out.Reply)
}

func TestHandle_BlankMessageIsIgnored(t *testing.T) {
	uc := &stubAsker{err: &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "empty_input"}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"message":"   "}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Empty(t, resp.Body)
}

func TestHandle_InvalidBody(t *testing.T) {
	uc := &stubAsker{}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`not-json`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Zero(t, uc.calls)

	out := parseBody[errorResponse](t, resp.Body)
	require.Equal(t, string(usecase.ErrorInvalidInput), out.Error)
}

func TestHandle_Base64Body(t *testing.T) {
	uc := &stubAsker{turn: domain.Turn{ID: "turn-3", Allowed: true, Response: "ok", State: domain.StateResolved}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	event := makeEvent(base64.StdEncoding.EncodeToString([]byte(`{"message":"hegra tickets"}`)))
	event.IsBase64Encoded = true
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "hegra tickets", uc.in)
}

func TestHandle_FailedTurns(t *testing.T) {
	cases := []struct {
		name   string
		code   usecase.ErrorCode
		status int
	}{
		{name: "upstream", code: usecase.ErrorUpstream, status: http.StatusBadGateway},
		{name: "rate limited", code: usecase.ErrorRateLimited, status: http.StatusTooManyRequests},
		{name: "internal", code: usecase.ErrorInternal, status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := &stubAsker{
				turn: domain.Turn{ID: "turn-4", Allowed: true, Response: "Request failed", State: domain.StateFailed},
				err:  &usecase.Error{Code: tc.code, Reason: "generate_error", Err: errors.New("status 500")},
			}
			h, err := NewHandler(uc)
			require.NoError(t, err)

			resp, err := h.Handle(context.Background(), makeEvent(`{"message":"riyadh"}`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			out := parseBody[chatResponse](t, resp.Body)
			require.Equal(t, "failed", out.State)
			require.Equal(t, "Request failed", out.Reply)
			require.Equal(t, string(tc.code), out.Error)
		})
	}
}

func TestHandle_UnexpectedError(t *testing.T) {
	h, err := NewHandler(&stubAsker{err: errors.New("boom")})
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"message":"riyadh"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	out := parseBody[errorResponse](t, resp.Body)
	require.Equal(t, string(usecase.ErrorInternal), out.Error)
}

func TestHandle_Preflight(t *testing.T) {
	uc := &stubAsker{}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	event := makeEvent("")
	event.HTTPMethod = http.MethodOptions
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	require.Contains(t, resp.Headers["Access-Control-Allow-Methods"], "POST")
	require.Zero(t, uc.calls)
}

func TestHandle_MethodNotAllowed(t *testing.T) {
	h, err := NewHandler(&stubAsker{})
	require.NoError(t, err)

	event := makeEvent("")
	event.HTTPMethod = http.MethodGet
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	uc := &stubAsker{turn: domain.Turn{ID: "turn-5", State: domain.StateResolved}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	event := makeEvent(`{"message":"riyadh"}`)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}
