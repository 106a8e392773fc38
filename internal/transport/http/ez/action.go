// Package ez registers gin handlers that return (data, error) and renders
// them in the response envelope.
package ez

import (
	"errors"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio-accounts/internal/domain"
	resp "portfolio-accounts/internal/transport/http/response"
)

// Context keys set by the auth middleware.
const (
	KeyUserID = "userId"
	KeyRole   = "role"
)

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

type Binder string

const (
	BindJSON  Binder = "json"
	BindQuery Binder = "query"
	BindNone  Binder = "none" // handler reads c.Param / form values itself
)

// AErr carries an envelope code to the client. Err is logged, never sent.
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: resp.CodeForbidden, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: resp.CodeNotFound, Msg: msg} }
func Conflict(msg string, err error) error {
	return &AErr{Code: resp.CodeConflict, Msg: msg, Err: err}
}
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// FromDomain maps service errors onto envelope codes; msg is used for
// unexpected failures.
func FromDomain(err error, msg string) error {
	var ae *AErr
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ae):
		return err
	case errors.Is(err, domain.ErrNotFound):
		return &AErr{Code: resp.CodeNotFound, Msg: "account not found", Err: err}
	case errors.Is(err, domain.ErrInvalidIdentity), errors.Is(err, domain.ErrInvalidMedia):
		return &AErr{Code: resp.CodeBadRequest, Msg: err.Error(), Err: err}
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrRestoreConflict):
		return Conflict("account conflict", err)
	case errors.Is(err, domain.ErrProviderUnavailable):
		return &AErr{Code: resp.CodeBadGateway, Msg: "identity provider unavailable", Err: err}
	default:
		return Internal(msg, err)
	}
}

type Action[I any, O any] struct {
	Method  string
	Path    string
	Binder  Binder
	Auth    bool     // require KeyUserID
	Roles   []string // optional role allow-list
	Handler func(c *gin.Context, in *I) (O, error)
}

// Render writes err through the envelope, attaching it to the gin context so
// the access log records the cause.
func Render(c *gin.Context, err error) {
	_ = c.Error(err)
	var ae *AErr
	if errors.As(err, &ae) {
		c.JSON(http.StatusOK, resp.Error(ae.Code, ae.Msg))
		return
	}
	c.JSON(http.StatusOK, resp.Error(resp.CodeServerError, ""))
}

func authorize(c *gin.Context, auth bool, roles []string) bool {
	if !auth {
		return true
	}
	if c.GetString(KeyUserID) == "" {
		c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "unauthorized"))
		return false
	}
	if len(roles) > 0 && !slices.Contains(roles, c.GetString(KeyRole)) {
		c.JSON(http.StatusOK, resp.Error(resp.CodeForbidden, "forbidden"))
		return false
	}
	return true
}

func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		if !authorize(c, a.Auth, a.Roles) {
			return
		}

		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		if bindErr != nil {
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, bindErr.Error()))
			return
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			Render(c, err)
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default:
		e.g.POST(a.Path, h)
	}
}

// POSTFILE handles a multipart upload with a single file under fieldName.
func POSTFILE[O any](e EZ, path, fieldName string, auth bool, h func(c *gin.Context, file *multipart.FileHeader) (O, error)) {
	e.g.POST(path, func(c *gin.Context) {
		if !authorize(c, auth, nil) {
			return
		}
		file, err := c.FormFile(fieldName)
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				Render(c, &AErr{Code: resp.CodeTooLarge, Msg: "request body too large", Err: err})
				return
			}
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, "missing file "+fieldName))
			return
		}
		out, err := h(c, file)
		if err != nil {
			Render(c, err)
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	})
}
