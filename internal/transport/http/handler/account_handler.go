package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-accounts/internal/media"
	"portfolio-accounts/internal/service"
	"portfolio-accounts/internal/transport/http/ez"
	mdw "portfolio-accounts/internal/transport/http/middleware"
)

type AccountHandler struct {
	directory *service.Directory
	lifecycle *service.Lifecycle
	avatars   *service.AvatarService
	media     media.Store
	// HomePath is where the client goes after deleting its account.
	HomePath string
}

func NewAccountHandler(directory *service.Directory, lifecycle *service.Lifecycle, avatars *service.AvatarService, store media.Store) *AccountHandler {
	return &AccountHandler{directory: directory, lifecycle: lifecycle, avatars: avatars, media: store, HomePath: "/"}
}

type deletedOut struct {
	Redirect string `json:"redirect"`
	Message  string `json:"message"`
}

func (h *AccountHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)

	ez.RegisterAction(e, ez.Action[struct{}, AccountView]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (AccountView, error) {
			a, err := h.directory.Get(c.Request.Context(), c.GetString(ez.KeyUserID))
			if err != nil {
				return AccountView{}, ez.FromDomain(err, "load account failed")
			}
			return toView(h.media, a), nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, deletedOut]{
		Method: http.MethodDelete,
		Path:   "/me",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (deletedOut, error) {
			if _, err := h.lifecycle.DestroyAccount(c.Request.Context(), c.GetString(ez.KeyUserID)); err != nil {
				return deletedOut{}, ez.FromDomain(err, "delete account failed")
			}
			c.SetCookie(mdw.SessionCookie, "", -1, "/", "", false, true)
			return deletedOut{Redirect: h.HomePath, Message: "Account deleted successfully"}, nil
		},
	})

	ez.POSTFILE(e, "/me/avatar", "avatar", true, func(c *gin.Context, fh *multipart.FileHeader) (AccountView, error) {
		f, err := fh.Open()
		if err != nil {
			return AccountView{}, ez.BadRequest("unreadable upload")
		}
		defer f.Close()
		a, err := h.avatars.Replace(c.Request.Context(), c.GetString(ez.KeyUserID), fh.Filename, fh.Size, f)
		if err != nil {
			return AccountView{}, ez.FromDomain(err, "avatar update failed")
		}
		return toView(h.media, a), nil
	})
}
