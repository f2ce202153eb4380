package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studybuddy/core/chat"
	"github.com/trezcool/studybuddy/core/notes"
)

type chatApi struct {
	svc      *chat.Service
	notesSvc *notes.Service
}

func registerChatAPI(g *echo.Group, auth *authenticator, svc *chat.Service, notesSvc *notes.Service) {
	api := chatApi{svc: svc, notesSvc: notesSvc}

	cg := g.Group("/ai-buddy", auth.middleware)
	cg.POST("/chat", api.chat)
	cg.POST("/clear-chat", api.clearChat)
}

// Handlers

func (api *chatApi) chat(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data ChatRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChatRequest")
	}

	reqCtx := ctx.Request().Context()
	var notesCtx string
	if data.NotesContext != nil {
		notesCtx = *data.NotesContext
	} else {
		p, err := api.notesSvc.GetProfile(reqCtx, claims.Subject)
		if err != nil {
			return errors.Wrap(err, "building notes context")
		}
		notesCtx = chat.BuildNotesContext(p.Subjects)
	}

	api.svc.SetSessionExpiry(claims.Id, time.Unix(claims.ExpiresAt, 0))
	resp, err := api.svc.Chat(reqCtx, claims.Id, data.Message, notesCtx)
	if err != nil {
		return errors.Wrap(err, "chatting")
	}
	return ctx.JSON(http.StatusOK, ChatResponse{Response: resp})
}

func (api *chatApi) clearChat(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	api.svc.Clear(claims.Id)
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Chat history cleared"})
}

type (
	ChatRequest struct {
		Message      string  `json:"message"`
		NotesContext *string `json:"notesContext"`
	}

	ChatResponse struct {
		Response string `json:"response"`
	}
)
