package echoapi_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/studybuddy/apps/api/echo"
	"github.com/trezcool/studybuddy/core/user"
	"github.com/trezcool/studybuddy/testutil"
)

func Test_userApi_register(t *testing.T) {
	app := setup(t)
	testutil.CreateUser(t, app.usrRepo, "awe", "awe@test.cd", "Str0ngPassw0rd!")

	newUser := func(uname, email, pwd string) []byte {
		return marshallObj(t, user.NewUser{Username: uname, Email: email, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "all fields required", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{
				Error: "username is required",
				Fields: map[string]string{
					"username": "username is required",
					"email":    "email is required",
					"password": "password is required",
				},
			}),
		},
		{
			name: "invalid fields", body: newUser("a!", "lol", "Str0ngPassw0rd!"), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{
				Error: "username must be at least 3 characters in length",
				Fields: map[string]string{
					"username": "username must be at least 3 characters in length",
					"email":    "email must be a valid email address",
				},
			}),
		},
		{
			name: "password too short", body: newUser("kingkong", "king@test.cd", "Ab1!"), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{
				Error:  "password must contain at least 6 characters",
				Fields: map[string]string{"password": "password must contain at least 6 characters"},
			}),
		},
		{
			name: "password too similar", body: newUser("kingkong", "king@test.cd", "kingkong1"), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{
				Error:  "password cannot be similar to your username or email",
				Fields: map[string]string{"password": "password cannot be similar to your username or email"},
			}),
		},
		{
			name: "username exists", body: newUser(" AWE ", "king@test.cd", "Str0ngPassw0rd!"), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{
				Error:  user.ErrUsernameExists.Error(),
				Fields: map[string]string{"username": user.ErrUsernameExists.Error()},
			}),
		},
		{
			name: "email exists", body: newUser("kingkong", "AWE@test.cd", "Str0ngPassw0rd!"), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{
				Error:  user.ErrEmailExists.Error(),
				Fields: map[string]string{"email": user.ErrEmailExists.Error()},
			}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/api/register"
	}
	app.runTests(t, tests)

	t.Run("registered", func(t *testing.T) {
		rec := app.do(newRequest(http.MethodPost, "/api/register", nil, newUser("King Kong", "King@Test.cd", "Str0ngPassw0rd!")))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assertNoCookieLeak(t, rec)

		var resp RegisterResponse
		unmarshall(t, rec.Body, &resp)
		assert.NotEmpty(t, resp.UserID)

		usr, err := app.usrRepo.GetUserByID(context.Background(), resp.UserID)
		require.NoError(t, err)
		assert.Equal(t, "king kong", usr.Username)
		assert.Equal(t, "king@test.cd", usr.Email)
		assert.NoError(t, usr.CheckPassword("Str0ngPassw0rd!"))

		// exactly one empty profile per identity
		p := app.profile(t, usr.ID)
		assert.Empty(t, p.Subjects)

		sent := app.mailSvc.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "king@test.cd", sent[0].To[0].Address)
		assert.True(t, strings.Contains(sent[0].TextContent, "Welcome to StudyBuddy"), sent[0].TextContent)
	})
}

func Test_userApi_login(t *testing.T) {
	app := setup(t)
	usr := testutil.CreateUser(t, app.usrRepo, "awe", "awe@test.cd", "Str0ngPassw0rd!")
	invalidCreds := marshallObj(t, httpErr{Error: user.ErrInvalidCredentials.Error()})

	login := func(email, pwd string) []byte {
		return marshallObj(t, user.LoginRequest{Email: email, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "fields required", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{
				Error:  "email is required",
				Fields: map[string]string{"email": "email is required", "password": "password is required"},
			}),
		},
		{name: "unknown email", body: login("lol@test.cd", "Str0ngPassw0rd!"), wantCode: http.StatusBadRequest, wantData: invalidCreds},
		{name: "wrong password", body: login("awe@test.cd", "lol"), wantCode: http.StatusBadRequest, wantData: invalidCreds},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/api/login"
	}
	app.runTests(t, tests)

	t.Run("logged in", func(t *testing.T) {
		rec := app.do(newRequest(http.MethodPost, "/api/login", nil, login(" AWE@test.cd ", "Str0ngPassw0rd!")))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp LoginResponse
		unmarshall(t, rec.Body, &resp)
		assert.Equal(t, LoginResponse{Message: "Login successful", Username: "awe", Email: "awe@test.cd", UserID: usr.ID}, resp)

		cookie := sessionCookie(t, rec, app.conf)
		assert.True(t, cookie.HttpOnly)
		assert.NotEmpty(t, cookie.Value)

		refreshed, err := app.usrRepo.GetUserByID(context.Background(), usr.ID)
		require.NoError(t, err)
		assert.False(t, refreshed.LastLogin.IsZero())
	})
}

func Test_userApi_logout(t *testing.T) {
	ai := new(fakeCompleter)
	app := setup(t, testOptions{ai: ai})
	_, cookie := app.register(t, "awe", "awe@test.cd", "Str0ngPassw0rd!")

	app.runTests(t, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/api/logout", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errUnauthenticated)},
		{
			name: "invalid session", method: http.MethodPost, path: "/api/logout", wantCode: http.StatusUnauthorized,
			cookie:   &http.Cookie{Name: app.conf.Server.SessionCookieName, Value: "lol"},
			wantData: marshallObj(t, errUnauthenticated),
		},
	})

	// fill the session history
	rec := app.do(newRequest(http.MethodPost, "/api/ai-buddy/chat", cookie, marshallObj(t, ChatRequest{Message: "hello"})))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(newRequest(http.MethodPost, "/api/logout", cookie))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cleared := sessionCookie(t, rec, app.conf)
	assert.Empty(t, cleared.Value)
	assert.True(t, cleared.MaxAge < 0)

	// logging back in starts a new session with an empty history
	cookie, _ = app.login(t, "awe@test.cd", "Str0ngPassw0rd!")
	notesCtx := ""
	rec = app.do(newRequest(http.MethodPost, "/api/ai-buddy/chat", cookie,
		marshallObj(t, ChatRequest{Message: "thanks", NotesContext: &notesCtx})))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, ai.lastPrompt(), "user: hello")
	assert.Contains(t, ai.lastPrompt(), "Student: thanks")
}
