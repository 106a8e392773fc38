package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-accounts/internal/domain"
	"portfolio-accounts/internal/media"
	"portfolio-accounts/internal/service"
	"portfolio-accounts/internal/transport/http/ez"
)

type AdminHandler struct {
	directory *service.Directory
	lifecycle *service.Lifecycle
	media     media.Store
}

func NewAdminHandler(directory *service.Directory, lifecycle *service.Lifecycle, store media.Store) *AdminHandler {
	return &AdminHandler{directory: directory, lifecycle: lifecycle, media: store}
}

type listQ struct {
	Offset      int    `form:"offset,default=0"`
	Limit       int    `form:"limit,default=20"`
	Q           string `form:"q"` // email / username substring
	WithDeleted bool   `form:"with_deleted"`
}

type listOut struct {
	Total int64              `json:"total"`
	Items []AdminAccountView `json:"items"`
}

func (h *AdminHandler) MountAdmin(g *gin.RouterGroup) {
	e := ez.New(g)
	admins := []string{domain.RoleAdmin}

	ez.RegisterAction(e, ez.Action[listQ, listOut]{
		Method: http.MethodGet,
		Path:   "/accounts",
		Binder: ez.BindQuery,
		Auth:   true,
		Roles:  admins,
		Handler: func(c *gin.Context, in *listQ) (listOut, error) {
			items, total, err := h.directory.List(c.Request.Context(), domain.ListFilter{
				Offset: in.Offset, Limit: in.Limit, Query: in.Q, WithDeleted: in.WithDeleted,
			})
			if err != nil {
				return listOut{}, ez.Internal("list accounts failed", err)
			}
			out := listOut{Total: total, Items: make([]AdminAccountView, 0, len(items))}
			for i := range items {
				out.Items = append(out.Items, toAdminView(h.media, &items[i]))
			}
			return out, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/accounts/:id/soft-delete",
		Binder: ez.BindNone,
		Auth:   true,
		Roles:  admins,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if err := h.lifecycle.SoftDelete(c.Request.Context(), id); err != nil {
				return nil, ez.FromDomain(err, "soft delete failed")
			}
			return gin.H{"id": id}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, service.DestroyReport]{
		Method: http.MethodDelete,
		Path:   "/accounts/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Roles:  admins,
		Handler: func(c *gin.Context, _ *struct{}) (service.DestroyReport, error) {
			rep, err := h.lifecycle.DestroyAccount(c.Request.Context(), c.Param("id"))
			if err != nil {
				return service.DestroyReport{}, ez.FromDomain(err, "destroy account failed")
			}
			return rep, nil
		},
	})
}
