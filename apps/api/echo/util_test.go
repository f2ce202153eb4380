package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/studybuddy/apps/api/echo"
	"github.com/trezcool/studybuddy/core"
	"github.com/trezcool/studybuddy/core/chat"
	"github.com/trezcool/studybuddy/core/notes"
	"github.com/trezcool/studybuddy/core/user"
	"github.com/trezcool/studybuddy/services/email"
	"github.com/trezcool/studybuddy/storage/database/inmem"
	"github.com/trezcool/studybuddy/testutil"
)

var errUnauthenticated = httpErr{Error: "Not authenticated. Please log in."}

type (
	testApp struct {
		server   *Server
		conf     *core.Config
		usrRepo  user.Repository
		profiles notes.ProfileRepository
		mailSvc  *emailsvc.ConsoleServiceMock
	}

	testOptions struct {
		store notes.ObjectStore
		ai    chat.Completer
		conf  func(conf *core.Config)
	}
)

func setup(t *testing.T, opts ...testOptions) *testApp {
	var opt testOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	conf := testutil.NewConfig()
	if opt.conf != nil {
		opt.conf(conf)
	}
	logger := testutil.NewLogger()
	validate, translator := testutil.NewValidator()

	// set up DB & repos
	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	profiles := inmemdb.NewProfileRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(logger, conf)
	notesSvc := notes.NewService(profiles, opt.store, conf)
	usrSvc := user.NewService(usrRepo, notesSvc, mailSvc, conf)
	chatSvc := chat.NewService(opt.ai, chat.NewHistory(), logger, conf)

	// set up server
	server := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		UserSvc:        usrSvc,
		NotesSvc:       notesSvc,
		ChatSvc:        chatSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return &testApp{
		server:   server,
		conf:     conf,
		usrRepo:  usrRepo,
		profiles: profiles,
		mailSvc:  mailSvc,
	}
}

type httpErr struct {
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
	Details string            `json:"details,omitempty"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	cookie   *http.Cookie
	wantCode int
	wantData []byte
}

func newRequest(method, path string, cookie *http.Cookie, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newMultipartRequest(
	t *testing.T,
	path string,
	cookie *http.Cookie,
	fields map[string]string,
	filename string,
	file []byte,
) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req, httptest.NewRecorder()
}

func (app *testApp) do(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	app.server.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) runTests(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := app.do(newRequest(method, tt.path, tt.cookie, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}
}

// register registers a user and logs them in, returning the session cookie.
func (app *testApp) register(t *testing.T, uname, email, pwd string) (string, *http.Cookie) {
	rec := app.do(newRequest(http.MethodPost, "/api/register", nil,
		marshallObj(t, user.NewUser{Username: uname, Email: email, Password: pwd})))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cookie, login := app.login(t, email, pwd)
	return login.UserID, cookie
}

func (app *testApp) login(t *testing.T, email, pwd string) (*http.Cookie, LoginResponse) {
	rec := app.do(newRequest(http.MethodPost, "/api/login", nil,
		marshallObj(t, user.LoginRequest{Email: email, Password: pwd})))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LoginResponse
	unmarshall(t, rec.Body, &resp)
	return sessionCookie(t, rec, app.conf), resp
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder, conf *core.Config) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == conf.Server.SessionCookieName {
			return c
		}
	}
	t.Fatalf("sessionCookie(): no %q cookie set", conf.Server.SessionCookieName)
	return nil
}

func (app *testApp) profile(t *testing.T, userID string) notes.UserProfile {
	p, err := app.profiles.GetProfile(context.Background(), userID)
	require.NoError(t, err)
	return p
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func unmarshall(t *testing.T, body io.Reader, obj interface{}) {
	data, err := ioutil.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, obj), string(data))
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *fakeStore) Upload(_ context.Context, objectName, _ string, body io.Reader) (string, error) {
	data, err := ioutil.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[objectName] = data
	return "https://storage.googleapis.com/notes/" + objectName, nil
}

type fakeCompleter struct {
	mu      sync.Mutex
	prompts []string
}

func (c *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	return "AI says hi", nil
}

func (c *fakeCompleter) lastPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.prompts) == 0 {
		return ""
	}
	return c.prompts[len(c.prompts)-1]
}

func assertNoCookieLeak(t *testing.T, rec *httptest.ResponseRecorder) {
	assert.Empty(t, rec.Result().Cookies())
}
