package handler

import (
	"time"

	"portfolio-accounts/internal/domain"
	"portfolio-accounts/internal/media"
	"portfolio-accounts/internal/service"
)

type AccountView struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Username  string         `json:"username"`
	FirstName string         `json:"firstName"`
	LastName  string         `json:"lastName"`
	Role      string         `json:"role"`
	Provider  string         `json:"provider,omitempty"`
	Profile   domain.Profile `json:"profile"`
	AvatarURL string         `json:"avatarUrl,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// AdminAccountView adds lifecycle state for the admin listing.
type AdminAccountView struct {
	AccountView
	State     string     `json:"state"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

func toView(store media.Store, a *domain.Account) AccountView {
	return AccountView{
		ID:        a.ID,
		Email:     a.Email,
		Username:  a.Username,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Role:      a.Role,
		Provider:  a.Provider,
		Profile:   a.Profile,
		AvatarURL: service.AvatarURL(store, a),
		CreatedAt: a.CreatedAt,
	}
}

func toAdminView(store media.Store, a *domain.Account) AdminAccountView {
	v := AdminAccountView{AccountView: toView(store, a), State: a.Lifecycle.State.String()}
	if a.IsSoftDeleted() {
		t := a.Lifecycle.DeletedAt
		v.DeletedAt = &t
	}
	return v
}
