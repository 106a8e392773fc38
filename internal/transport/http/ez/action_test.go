package ez

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-accounts/internal/domain"
	resp "portfolio-accounts/internal/transport/http/response"
)

func TestFromDomain(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("load: %w", domain.ErrNotFound), resp.CodeNotFound},
		{fmt.Errorf("%w: email missing", domain.ErrInvalidIdentity), resp.CodeBadRequest},
		{domain.ErrInvalidMedia, resp.CodeBadRequest},
		{domain.ErrConflict, resp.CodeConflict},
		{domain.ErrRestoreConflict, resp.CodeConflict},
		{fmt.Errorf("%w: google: timeout", domain.ErrProviderUnavailable), resp.CodeBadGateway},
		{errors.New("disk on fire"), resp.CodeServerError},
	}
	for _, tc := range cases {
		var ae *AErr
		require.ErrorAs(t, FromDomain(tc.err, "failed"), &ae, tc.err.Error())
		assert.Equal(t, tc.code, ae.Code, tc.err.Error())
		assert.ErrorIs(t, ae, tc.err)
	}

	assert.NoError(t, FromDomain(nil, "x"))
	forbidden := Forbidden("nope")
	assert.Same(t, forbidden, FromDomain(forbidden, "x"))
}

func TestRegisterAction_RolesAndBinding(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(KeyUserID, c.GetHeader("X-User"))
		c.Set(KeyRole, c.GetHeader("X-Role"))
	})

	type in struct {
		N int `form:"n" binding:"required"`
	}
	RegisterAction(New(&r.RouterGroup), Action[in, int]{
		Method: http.MethodGet, Path: "/double", Binder: BindQuery, Auth: true, Roles: []string{"admin"},
		Handler: func(_ *gin.Context, i *in) (int, error) { return i.N * 2, nil },
	})

	call := func(target, user, role string) resp.Resp {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("X-User", user)
		req.Header.Set("X-Role", role)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		var out resp.Resp
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		return out
	}

	assert.Equal(t, resp.CodeUnauthorized, call("/double?n=2", "", "").Code)
	assert.Equal(t, resp.CodeForbidden, call("/double?n=2", "u1", "user").Code)
	assert.Equal(t, resp.CodeBadRequest, call("/double", "u1", "admin").Code)

	ok := call("/double?n=21", "u1", "admin")
	assert.Equal(t, resp.CodeOK, ok.Code)
	assert.EqualValues(t, 42, ok.Data)
}
