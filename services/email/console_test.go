package emailsvc

import (
	"net/mail"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trezcool/studybuddy/core"
	"github.com/trezcool/studybuddy/services/logger"
)

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	conf := &core.Config{
		AppName:          "StudyBuddy",
		FrontendBaseURL:  "http://localhost:8000",
		DefaultFromEmail: mail.Address{Name: "StudyBuddy", Address: "noreply@localhost"},
	}
	svc := NewConsoleServiceMock(logsvc.NewZapLogger(zap.NewNop()), conf)
	tmpl := template.Must(template.New("t").Parse("Hi {{.Data}}, welcome to {{.AppName}} ({{.FrontendBaseURL}})"))

	svc.SendMessages(
		&core.EmailMessage{To: []mail.Address{{Address: "awe@test.cd"}}, Subject: "body", BodyStr: "plain"},
		&core.EmailMessage{To: []mail.Address{{Address: "awe@test.cd"}}, Subject: "tmpl", Template: tmpl, TemplateData: "awe"},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "dropped"},
		&core.EmailMessage{To: []mail.Address{{Address: "awe@test.cd"}}, Subject: "no content"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "plain", sent[0].TextContent)
	assert.Equal(t, "Hi awe, welcome to StudyBuddy (http://localhost:8000)", sent[1].TextContent)

	out := svc.format(sent[1])
	assert.Contains(t, out, "Subject: [StudyBuddy] tmpl\r\n")
	assert.Contains(t, out, "To: <awe@test.cd>\r\n")
}
