package entrypoint

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"go.uber.org/zap"

	"mailhook/internal/notify"
	"mailhook/pkg/logger"
)

type payloadProcessor interface {
	ProcessPayload(ctx context.Context, data []byte) notify.Result
}

// GmailHandler runs one change notification through the pipeline per
// request. The body is either the notification payload itself or a Pub/Sub
// push envelope carrying it.
type GmailHandler struct {
	pipeline payloadProcessor
	logger   *zap.Logger
}

func NewGmailHandler(pipeline payloadProcessor, logger *zap.Logger) *GmailHandler {
	return &GmailHandler{pipeline: pipeline, logger: logger}
}

func (h *GmailHandler) Handle(ctx context.Context, req Request) Response {
	log := logger.WithTrace(ctx, h.logger)
	if req.Body == "" {
		log.Warn("No body received in the request")
		return BadRequest(msgNoBody)
	}
	if !json.Valid([]byte(req.Body)) {
		log.Warn("Failed to parse request body")
		return BadRequest(msgInvalidJSON)
	}

	res := h.pipeline.ProcessPayload(ctx, unwrapPush([]byte(req.Body)))
	if res.Failed() {
		log.Error("Notification processing failed",
			zap.String("outcome", string(res.Outcome)),
			zap.Error(res.Err),
		)
		return InternalError(res.Err)
	}
	return OK()
}

type pushEnvelope struct {
	Message *struct {
		Data string `json:"data"`
	} `json:"message"`
}

// unwrapPush returns the decoded data of a push envelope, or body itself
// when it is not one.
func unwrapPush(body []byte) []byte {
	var env pushEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Message == nil || env.Message.Data == "" {
		return body
	}
	data, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil {
		return body
	}
	return data
}
