package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trezcool/studybuddy/core"
	"github.com/trezcool/studybuddy/core/chat"
	"github.com/trezcool/studybuddy/core/notes"
	"github.com/trezcool/studybuddy/services/logger"
)

type fakeCompleter struct {
	resp    string
	err     error
	delay   time.Duration
	prompts []string
}

func (c *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	if c.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.delay):
		}
	}
	return c.resp, c.err
}

func newService(ai chat.Completer, timeout time.Duration) *chat.Service {
	conf := &core.Config{AppName: "StudyBuddy", AI: core.AIConfig{Timeout: timeout}}
	return chat.NewService(ai, chat.NewHistory(), logsvc.NewZapLogger(zap.NewNop()), conf)
}

func TestService_Chat_fallback(t *testing.T) {
	svc := newService(nil, 0)
	ctx := context.Background()

	tests := []struct {
		name     string
		message  string
		hasNotes bool
		want     string
	}{
		{name: "greeting", message: "hello", want: chat.Fallback("hi", false)},
		{name: "greeting with notes", message: "Hey there", hasNotes: true, want: chat.Fallback("hello", true)},
		{name: "quiz", message: "Can you quiz me?", want: chat.Fallback("quiz", false)},
		{name: "help before quiz", message: "I need help with a quiz", want: chat.Fallback("help", false)},
		{name: "explanation", message: "What is osmosis?", want: chat.Fallback("explain", false)},
		{name: "difficulty", message: "This is so confusing", want: chat.Fallback("stuck", false)},
		{name: "exam", message: "My exam is on Monday", want: chat.Fallback("exam", false)},
		{name: "thanks", message: "Thank you!", want: chat.Fallback("thanks", false)},
		{name: "default", message: "Photosynthesis", want: chat.Fallback("", false)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var notesCtx string
			if tt.hasNotes {
				notesCtx = "Subject: Biology\n"
			}
			got, err := svc.Chat(ctx, "sess", tt.message, notesCtx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFallback_distinctBranches(t *testing.T) {
	seen := make(map[string]string)
	for _, msg := range []string{"hello", "help", "explain", "quiz", "stuck", "exam", "thanks", "photosynthesis"} {
		resp := chat.Fallback(msg, false)
		if prev, ok := seen[resp]; ok {
			t.Errorf("Fallback(%q) = Fallback(%q)", msg, prev)
		}
		seen[resp] = msg
	}
	assert.NotEqual(t, chat.Fallback("hello", true), chat.Fallback("hello", false))
	assert.NotEqual(t, chat.Fallback("this", false), chat.Fallback("hi", false), `"this" is not a greeting`)
}

func TestService_Chat_emptyMessage(t *testing.T) {
	svc := newService(nil, 0)
	for _, msg := range []string{"", "   "} {
		_, err := svc.Chat(context.Background(), "sess", msg, "")
		var vErr *core.ValidationError
		assert.True(t, errors.As(err, &vErr))
	}
	assert.Empty(t, svc.History("sess"))
}

func TestService_Chat_ai(t *testing.T) {
	ctx := context.Background()
	ai := &fakeCompleter{resp: " Mitochondria make ATP. "}
	svc := newService(ai, time.Second)

	for i := 0; i < 4; i++ {
		_, err := svc.Chat(ctx, "sess", "question "+string(rune('a'+i)), "")
		require.NoError(t, err)
	}

	notesCtx := strings.Repeat("x", 300) + "TRUNCATED"
	got, err := svc.Chat(ctx, "sess", "What do mitochondria do?", notesCtx)
	require.NoError(t, err)
	assert.Equal(t, "Mitochondria make ATP.", got)

	prompt := ai.prompts[len(ai.prompts)-1]
	assert.Contains(t, prompt, "StudyBuddy")
	assert.Contains(t, prompt, strings.Repeat("x", 300))
	assert.NotContains(t, prompt, "TRUNCATED")
	assert.Contains(t, prompt, "Student: What do mitochondria do?")
	// 8 entries are stored, only the last 6 are sent
	assert.NotContains(t, prompt, "user: question a")
	assert.Contains(t, prompt, "user: question b")
	assert.Contains(t, prompt, "user: question d")
	assert.Contains(t, prompt, "assistant: Mitochondria make ATP.")
	assert.Equal(t, 3, strings.Count(prompt, "user: question"))

	hist := svc.History("sess")
	require.Len(t, hist, 10)
	assert.Equal(t, chat.Entry{Role: chat.RoleAssistant, Content: "Mitochondria make ATP."}, hist[9])
}

func TestService_Chat_aiFailure(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		ai   *fakeCompleter
	}{
		{name: "error", ai: &fakeCompleter{err: errors.New("quota exceeded")}},
		{name: "empty response", ai: &fakeCompleter{resp: "  "}},
		{name: "timeout", ai: &fakeCompleter{resp: "too late", delay: time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(tt.ai, 10*time.Millisecond)
			got, err := svc.Chat(ctx, "sess", "hello", "")
			require.NoError(t, err)
			assert.Equal(t, chat.Fallback("hello", false), got)
			assert.Len(t, svc.History("sess"), 2)
		})
	}
}

func TestService_historyTruncation(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil, 0)

	for i := 0; i < 6; i++ {
		_, err := svc.Chat(ctx, "sess", "hello", "")
		require.NoError(t, err)
	}
	assert.Len(t, svc.History("sess"), chat.MaxHistory)

	svc.Clear("sess")
	assert.Empty(t, svc.History("sess"))

	_, err := svc.Chat(ctx, "sess", "thanks", "")
	require.NoError(t, err)
	hist := svc.History("sess")
	require.Len(t, hist, 2)
	assert.Equal(t, chat.RoleUser, hist[0].Role)
	assert.Equal(t, "thanks", hist[0].Content)
}

func TestService_sessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil, 0)

	_, err := svc.Chat(ctx, "sess-1", "hello", "")
	require.NoError(t, err)
	assert.Len(t, svc.History("sess-1"), 2)
	assert.Empty(t, svc.History("sess-2"))

	svc.Clear("sess-2")
	assert.Len(t, svc.History("sess-1"), 2)
}

func TestBuildNotesContext(t *testing.T) {
	subjects := []notes.Subject{
		{
			Name: "Biology",
			Chapters: []notes.Chapter{
				{
					Name: "Cell Theory",
					Notes: []notes.Note{
						{Title: "Mitochondria notes", Type: notes.TypeNotes, Content: "Powerhouse of the cell"},
						{Title: "Lab report", Type: notes.TypeAssignment},
					},
				},
			},
		},
		{Name: "Chemistry"},
	}
	want := "Subject: Biology\n" +
		"  Chapter: Cell Theory\n" +
		"    - Mitochondria notes (notes): Powerhouse of the cell\n" +
		"    - Lab report (assignment)\n" +
		"Subject: Chemistry\n"
	assert.Equal(t, want, chat.BuildNotesContext(subjects))
	assert.Empty(t, chat.BuildNotesContext(nil))

	// no cap is applied when building
	long := strings.Repeat("a", 1000)
	got := chat.BuildNotesContext([]notes.Subject{{Name: long}})
	assert.Contains(t, got, long)
}
