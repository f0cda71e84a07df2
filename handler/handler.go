// Package handler adapts API Gateway proxy requests to the curator chat
// protocol. A request carries one chat message; the response collects every
// reply the agent produced for it.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"nft-curator/internal/domain"
	"nft-curator/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// ChatService is satisfied by *usecase.CuratorService.
type ChatService interface {
	Handle(ctx context.Context, in domain.Inbound, out usecase.Replier) error
}

type Handler struct {
	svc    ChatService
	now    func() time.Time
	logger *slog.Logger
}

type chatRequest struct {
	Sender       string `json:"sender"`
	Message      string `json:"message"`
	MsgID        string `json:"msgId,omitempty"`
	StartSession bool   `json:"startSession,omitempty"`
}

type replyMessage struct {
	MsgID      string    `json:"msgId"`
	Timestamp  time.Time `json:"timestamp"`
	Text       string    `json:"text"`
	EndSession bool      `json:"endSession,omitempty"`
}

type chatResponse struct {
	Sender       string         `json:"sender"`
	Acknowledged string         `json:"acknowledged,omitempty"`
	Messages     []replyMessage `json:"messages"`
	EndSession   bool           `json:"endSession"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func NewHandler(svc ChatService) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: chat service must not be nil")
	}
	return &Handler{svc: svc, now: time.Now, logger: slog.Default()}, nil
}

func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(event.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	log := h.logger.With("correlation_id", correlationID)

	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return h.fail(correlationID, http.StatusBadRequest, usecase.ErrorInvalidInput, "body is not valid base64"), nil
		}
		body = string(decoded)
	}

	var req chatRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		log.Warn("invalid request body", "error", err)
		return h.fail(correlationID, http.StatusBadRequest, usecase.ErrorInvalidInput, "body must be a JSON chat request"), nil
	}

	in := h.inbound(req)
	out := &collector{}
	if err := h.svc.Handle(ctx, in, out); err != nil {
		code := usecase.CodeOf(err)
		status := statusFor(code)
		if status >= http.StatusInternalServerError {
			log.Error("chat request failed", "sender", in.Sender, "code", code, "error", err)
		} else {
			log.Warn("chat request rejected", "sender", in.Sender, "code", code, "error", err)
		}
		return h.fail(correlationID, status, code, ""), nil
	}

	resp := chatResponse{Sender: in.Sender, Messages: out.messages}
	if resp.Messages == nil {
		resp.Messages = []replyMessage{}
	}
	if out.ack != nil {
		resp.Acknowledged = out.ack.AcknowledgedMsgID
	}
	for _, m := range resp.Messages {
		if m.EndSession {
			resp.EndSession = true
		}
	}
	return respond(correlationID, http.StatusOK, resp), nil
}

func (h *Handler) inbound(req chatRequest) domain.Inbound {
	msgID := strings.TrimSpace(req.MsgID)
	if msgID == "" {
		msgID = uuid.NewString()
	}
	env := domain.Envelope{MsgID: msgID, Timestamp: h.now().UTC()}
	if req.StartSession {
		env.Content = append(env.Content, domain.Content{Type: domain.ContentStartSession})
	}
	if req.Message != "" {
		env.Content = append(env.Content, domain.Content{Type: domain.ContentText, Text: req.Message})
	}
	return domain.Inbound{Sender: req.Sender, Message: env}
}

func (h *Handler) fail(correlationID string, status int, code usecase.ErrorCode, msg string) events.APIGatewayProxyResponse {
	return respond(correlationID, status, errorResponse{Error: string(code), Message: msg})
}

// collector buffers replies for the synchronous response.
type collector struct {
	ack      *domain.Acknowledgement
	messages []replyMessage
}

func (c *collector) Acknowledge(_ context.Context, _ string, ack domain.Acknowledgement) error {
	c.ack = &ack
	return nil
}

func (c *collector) Send(_ context.Context, _ string, msg domain.Envelope) error {
	c.messages = append(c.messages, replyMessage{
		MsgID:      msg.MsgID,
		Timestamp:  msg.Timestamp,
		Text:       msg.Text(),
		EndSession: msg.EndsSession(),
	})
	return nil
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorMissingAnalysis:
		return http.StatusConflict
	case usecase.ErrorUpstream, usecase.ErrorCurationUnavailable, usecase.ErrorUnrecoverableFormat:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respond(correlationID string, status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: string(body),
	}
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
