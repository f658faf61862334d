package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"tourism-chat/internal/domain"
	"tourism-chat/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

type Asker interface {
	Ask(ctx context.Context, text string) (domain.Turn, error)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	TurnID  string `json:"turnId"`
	State   string `json:"state"`
	Allowed bool   `json:"allowed"`
	Reply   string `json:"reply"`
	Error   string `json:"error,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Handler serves the chat widget through API Gateway.
type Handler struct {
	uc            Asker
	allowedOrigin string
	logger        *slog.Logger
}

type Option func(*Handler)

// WithAllowedOrigin sets the Access-Control-Allow-Origin value.
func WithAllowedOrigin(origin string) Option {
	return func(h *Handler) {
		h.allowedOrigin = strings.TrimSpace(origin)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHandler(uc Asker, opts ...Option) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: asker must not be nil")
	}
	h := &Handler{uc: uc, allowedOrigin: "*", logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(req.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	log := h.logger.With("correlation_id", correlationID)

	switch req.HTTPMethod {
	case http.MethodOptions:
		return h.respond(http.StatusNoContent, correlationID, nil), nil
	case http.MethodPost:
	default:
		return h.respond(http.StatusMethodNotAllowed, correlationID, errorResponse{Error: "METHOD_NOT_ALLOWED"}), nil
	}

	in, err := decodeRequest(req)
	if err != nil {
		log.Info("invalid request body", "err", err)
		return h.respond(http.StatusBadRequest, correlationID, errorResponse{Error: string(usecase.ErrorInvalidInput), Message: "invalid JSON body"}), nil
	}

	turn, err := h.uc.Ask(ctx, in.Message)
	var ucErr *usecase.Error
	switch {
	case err == nil:
		log.Info("turn settled", "turn_id", turn.ID, "state", turn.State)
		return h.respond(http.StatusOK, correlationID, toResponse(turn, "")), nil
	case errors.As(err, &ucErr) && ucErr.Code == usecase.ErrorInvalidInput:
		// Blank messages are ignored.
		return h.respond(http.StatusNoContent, correlationID, nil), nil
	case errors.As(err, &ucErr) && turn.State == domain.StateFailed:
		log.Warn("turn failed", "turn_id", turn.ID, "code", ucErr.Code, "reason", ucErr.Reason, "err", ucErr.Err)
		return h.respond(statusFor(ucErr.Code), correlationID, toResponse(turn, string(ucErr.Code))), nil
	default:
		log.Error("unexpected ask error", "err", err)
		return h.respond(http.StatusInternalServerError, correlationID, errorResponse{Error: string(usecase.ErrorInternal)}), nil
	}
}

func decodeRequest(req events.APIGatewayProxyRequest) (chatRequest, error) {
	body := req.Body
	if req.IsBase64Encoded {
		raw, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return chatRequest{}, err
		}
		body = string(raw)
	}
	var in chatRequest
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return chatRequest{}, err
	}
	return in, nil
}

func toResponse(turn domain.Turn, code string) chatResponse {
	return chatResponse{
		TurnID:  turn.ID,
		State:   string(turn.State),
		Allowed: turn.Allowed,
		Reply:   turn.Response,
		Error:   code,
	}
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respond(status int, correlationID string, body any) events.APIGatewayProxyResponse {
	headers := map[string]string{
		correlationHeader:              correlationID,
		"Access-Control-Allow-Origin":  h.allowedOrigin,
		"Access-Control-Allow-Methods": "POST, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type, " + correlationHeader,
	}
	resp := events.APIGatewayProxyResponse{StatusCode: status, Headers: headers}
	if body == nil {
		return resp
	}
	raw, err := json.Marshal(body)
	if err != nil {
		h.logger.Error("marshal response", "err", err)
		resp.StatusCode = http.StatusInternalServerError
		return resp
	}
	headers["Content-Type"] = "application/json"
	resp.Body = string(raw)
	return resp
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
