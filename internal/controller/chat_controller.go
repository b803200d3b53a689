package controller

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"ai-policyqa-be/internal/dto"
	"ai-policyqa-be/internal/pkg/serverutils"
	"ai-policyqa-be/internal/service"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router, guards ...fiber.Handler)
	Ask(ctx *fiber.Ctx) error
	Poll(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService    service.IChatService
	streamLifetime time.Duration
}

func NewChatController(chatService service.IChatService, streamLifetime time.Duration) IChatController {
	if streamLifetime <= 0 {
		streamLifetime = 300 * time.Second
	}
	return &chatController{
		chatService:    chatService,
		streamLifetime: streamLifetime,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router, guards ...fiber.Handler) {
	h := r.Group("/chat/v1")
	for _, guard := range guards {
		h.Use(guard)
	}
	h.Post("/ask", c.Ask)
	h.Get("/poll/:id", c.Poll)

	h.Use("/stream/:id", func(ctx *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(ctx) {
			return ctx.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	h.Get("/stream/:id", websocket.New(c.stream))
}

func (c *chatController) Ask(ctx *fiber.Ctx) error {
	var req dto.AskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.Ask(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.AcceptedResponse("Question accepted", res))
}

func (c *chatController) Poll(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid correlation id")
	}
	return ctx.JSON(serverutils.SuccessResponse("Status", c.chatService.Poll(ctx.Context(), id)))
}

const (
	streamPollInterval = 500 * time.Millisecond
	streamPingInterval = 15 * time.Second
)

// stream pushes progress frames over the websocket until the terminal
// payload lands or the lifetime cap expires. Thinking lines and message
// text are sent incrementally; the cap ends the stream with an error frame.
func (c *chatController) stream(conn *websocket.Conn) {
	defer conn.Close()

	id, err := uuid.Parse(conn.Params("id"))
	if err != nil {
		_ = conn.WriteJSON(dto.StreamFrame{Type: dto.FrameError, Text: "invalid correlation id", SentAt: time.Now()})
		return
	}

	deadline := time.NewTimer(c.streamLifetime)
	defer deadline.Stop()
	poll := time.NewTicker(streamPollInterval)
	defer poll.Stop()
	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	sentThinking := 0
	sentMessage := 0

	for {
		select {
		case <-deadline.C:
			_ = conn.WriteJSON(dto.StreamFrame{Type: dto.FrameError, Text: "stream lifetime exceeded", SentAt: time.Now()})
			return

		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-poll.C:
			if entry, ok := c.chatService.Progress(id); ok {
				for ; sentThinking < len(entry.Thinking); sentThinking++ {
					frame := dto.StreamFrame{Type: dto.FrameThinking, Text: entry.Thinking[sentThinking], SentAt: time.Now()}
					if err := conn.WriteJSON(frame); err != nil {
						return
					}
				}
				if len(entry.Message) > sentMessage {
					frame := dto.StreamFrame{Type: dto.FrameMessageChunk, Text: entry.Message[sentMessage:], SentAt: time.Now()}
					if err := conn.WriteJSON(frame); err != nil {
						return
					}
					sentMessage = len(entry.Message)
				}
			}

			if payload, ok := c.chatService.Result(context.Background(), id); ok {
				_ = conn.WriteJSON(dto.StreamFrame{Type: dto.FrameCompleted, Result: payload, SentAt: time.Now()})
				return
			}
		}
	}
}
