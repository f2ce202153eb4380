package testutil

import (
	"context"
	"net/mail"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trezcool/studybuddy/core"
	"github.com/trezcool/studybuddy/core/user"
	"github.com/trezcool/studybuddy/services/logger"
)

// NewConfig returns the TEST configuration, without reading the environment.
func NewConfig() *core.Config {
	return &core.Config{
		AppName:          "StudyBuddy",
		Build:            "test",
		Env:              "TEST",
		TestMode:         true,
		SecretKey:        "test-secret-key",
		FrontendBaseURL:  "http://localhost:8000",
		DefaultFromEmail: mail.Address{Name: "StudyBuddy", Address: "noreply@localhost"},
		Server: core.ServerConfig{
			Host:               "localhost",
			Address:            ":0",
			ShutdownTimeout:    time.Second,
			JWTExpirationDelta: time.Hour,
			SessionCookieName:  "session_token",
			MaxUploadSize:      "50M",
		},
		Storage: core.StorageConfig{UploadTimeout: 5 * time.Second},
		AI:      core.AIConfig{Timeout: time.Second},
	}
}

func NewLogger() *logsvc.RollbarLogger {
	return logsvc.NewZapLogger(zap.NewNop())
}

// NewValidator returns a validator with every app validator registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(t *testing.T, repo user.Repository, uname, email, pwd string) user.User {
	now := time.Now().UTC()
	usr := user.User{
		ID:        uuid.NewString(),
		Username:  uname,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
