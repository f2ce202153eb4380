package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studybuddy/core"
	"github.com/trezcool/studybuddy/core/chat"
	"github.com/trezcool/studybuddy/core/user"
)

type userApi struct {
	svc      *user.Service
	chatSvc  *chat.Service
	auth     *authenticator
	validate *validator.Validate
}

func registerUserAPI(
	g *echo.Group,
	auth *authenticator,
	svc *user.Service,
	chatSvc *chat.Service,
	validate *validator.Validate,
) {
	api := userApi{
		svc:      svc,
		chatSvc:  chatSvc,
		auth:     auth,
		validate: validate,
	}

	// un-authed endpoints
	g.POST("/register", api.register)
	g.POST("/login", api.login)

	// authed endpoints
	g.POST("/logout", api.logout, auth.middleware)
}

// Handlers

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Register(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusOK, RegisterResponse{Message: "User registered successfully", UserID: usr.ID})
}

func (api *userApi) login(ctx echo.Context) error {
	var data user.LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	data.Email = core.CleanString(data.Email, true /* lower */)
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		if errors.Cause(err) == user.ErrInvalidCredentials {
			return core.NewValidationError(user.ErrInvalidCredentials)
		}
		return errors.Wrap(err, "authenticating")
	}
	if _, err := api.auth.startSession(ctx, usr); err != nil {
		return errors.Wrap(err, "starting session")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{
		Message:  "Login successful",
		Username: usr.Username,
		Email:    usr.Email,
		UserID:   usr.ID,
	})
}

func (api *userApi) logout(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	api.chatSvc.Clear(claims.Id)
	api.auth.endSession(ctx)
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

type (
	RegisterResponse struct {
		Message string `json:"message"`
		UserID  string `json:"userId"`
	}

	LoginResponse struct {
		Message  string `json:"message"`
		Username string `json:"username"`
		Email    string `json:"email"`
		UserID   string `json:"userId"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}
)
