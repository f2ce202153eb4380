package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/studybuddy/core"
)

const (
	// promptNotesLimit is the number of notes-context characters sent with a prompt.
	promptNotesLimit = 300
	// promptHistoryLen is the number of history entries sent with a prompt.
	promptHistoryLen = 6
)

type (
	// Completer is any generative-AI client able to answer a prompt.
	Completer interface {
		Complete(ctx context.Context, prompt string) (string, error)
	}

	Service struct {
		ai      Completer // nil when not configured
		history *History
		timeout time.Duration
		persona string
		logger  core.Logger
	}
)

// NewService returns a chat Service. ai may be nil, in which case every message is answered by the fallback rules.
func NewService(ai Completer, history *History, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		ai:      ai,
		history: history,
		timeout: conf.AI.Timeout,
		persona: fmt.Sprintf("You are %s, a friendly and encouraging AI study assistant. "+
			"Help the student understand their notes, answer clearly and concisely, "+
			"and suggest a next study step when it helps.", conf.AppName),
		logger: logger,
	}
}

// Chat answers message for the session, grounding the AI on notesContext.
// AI failures are never returned: the fallback rules answer instead.
func (svc *Service) Chat(ctx context.Context, sessionID, message, notesContext string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		msg := "Message is required"
		return "", core.NewValidationError(errors.New(msg), core.FieldError{Field: "message", Error: msg})
	}
	hasNotes := strings.TrimSpace(notesContext) != ""

	var resp string
	if svc.ai != nil {
		prompt := svc.buildPrompt(message, notesContext, svc.history.Recent(sessionID, promptHistoryLen))
		var err error
		if resp, err = svc.complete(ctx, prompt); err != nil {
			svc.logger.Warn("AI completion failed, falling back", err)
			resp = ""
		}
	}
	if resp == "" {
		resp = Fallback(message, hasNotes)
	}

	svc.history.Append(sessionID,
		Entry{Role: RoleUser, Content: message},
		Entry{Role: RoleAssistant, Content: resp},
	)
	return resp, nil
}

func (svc *Service) complete(ctx context.Context, prompt string) (string, error) {
	if svc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, svc.timeout)
		defer cancel()
	}
	resp, err := svc.ai.Complete(ctx, prompt)
	if err != nil {
		return "", errors.Wrap(err, "completing prompt")
	}
	resp = strings.TrimSpace(resp)
	if resp == "" {
		return "", errors.New("empty completion")
	}
	return resp, nil
}

func (svc *Service) buildPrompt(message, notesContext string, recent []Entry) string {
	var b strings.Builder
	b.WriteString(svc.persona)
	b.WriteString("\n\n")

	if notesContext = truncate(strings.TrimSpace(notesContext), promptNotesLimit); notesContext != "" {
		b.WriteString("Student's notes:\n")
		b.WriteString(notesContext)
		b.WriteString("\n\n")
	} else {
		b.WriteString("The student has not shared any notes yet.\n\n")
	}

	if len(recent) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, e := range recent {
			fmt.Fprintf(&b, "%s: %s\n", e.Role, e.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Student: %s\nAssistant:", message)
	return b.String()
}

// SetSessionExpiry drops the session's conversation once the session expires.
func (svc *Service) SetSessionExpiry(sessionID string, at time.Time) {
	svc.history.SetExpiry(sessionID, at)
}

// Clear resets the conversation of the session.
func (svc *Service) Clear(sessionID string) {
	svc.history.Clear(sessionID)
}

// History returns the conversation of the session, oldest first.
func (svc *Service) History(sessionID string) []Entry {
	return svc.history.Recent(sessionID, MaxHistory)
}
