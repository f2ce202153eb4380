package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/studybuddy/core"
	"github.com/trezcool/studybuddy/core/user"
)

const contextClaimsKey = "session"

// Claims represents the session claims transmitted via the session cookie.
// StandardClaims.Id identifies the session, StandardClaims.Subject the user.
type Claims struct {
	jwt.StandardClaims
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

type authenticator struct {
	conf       *core.Config
	signingKey []byte
	middleware echo.MiddlewareFunc
}

func newAuthenticator(conf *core.Config) *authenticator {
	a := &authenticator{
		conf:       conf,
		signingKey: []byte(conf.SecretKey),
	}
	a.middleware = middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    a.signingKey,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextClaimsKey,
		Claims:        new(Claims),
		TokenLookup:   "cookie:" + conf.Server.SessionCookieName,
		ErrorHandler: func(error) error {
			return errUnauthenticated
		},
	})
	return a
}

func (a *authenticator) newClaims(usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Issuer:    a.conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(a.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: usr.Username,
		Email:    usr.Email,
	}
}

// generateToken generates a signed JWT token string representing the session Claims.
func (a *authenticator) generateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString(a.signingKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// startSession sets the session cookie of usr and returns the session claims.
func (a *authenticator) startSession(ctx echo.Context, usr user.User) (*Claims, error) {
	claims := a.newClaims(usr)
	token, err := a.generateToken(claims)
	if err != nil {
		return nil, err
	}
	ctx.SetCookie(a.cookie(token, time.Unix(claims.ExpiresAt, 0)))
	return claims, nil
}

func (a *authenticator) endSession(ctx echo.Context) {
	c := a.cookie("", time.Unix(0, 0))
	c.MaxAge = -1
	ctx.SetCookie(c)
}

func (a *authenticator) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     a.conf.Server.SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.conf.Server.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextClaimsKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthenticated
}
