package account

import (
	"time"

	"gorm.io/gorm"

	"portfolio-accounts/internal/domain"
)

// AccountModel is the persisted account row. Uniqueness of email, username and
// (provider, provider_subject_id) among non-deleted rows is enforced by the
// partial indexes created in repo.Migrate, not by struct tags.
type AccountModel struct {
	ID                string  `gorm:"primaryKey;type:varchar(32)"`
	Provider          string  `gorm:"size:32;not null;default:''"`
	ProviderSubjectID *string `gorm:"size:191"`
	Email             string  `gorm:"size:191;not null;index"`
	Username          string  `gorm:"size:64;not null;index"`
	FirstName         string  `gorm:"size:50;not null"`
	LastName          string  `gorm:"size:50;not null;default:''"`
	Role              string  `gorm:"size:16;not null;default:user"`

	About      string `gorm:"size:500"`
	Occupation string `gorm:"size:100"`
	Company    string `gorm:"size:100"`
	Location   string `gorm:"size:100"`
	City       string `gorm:"size:100"`
	Website    string `gorm:"size:255"`

	AvatarPath *string `gorm:"size:255"`
	AvatarURL  *string `gorm:"size:1024"`

	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (AccountModel) TableName() string { return "accounts" }

type WorkExperienceModel struct {
	ID          string    `gorm:"primaryKey;type:varchar(32)"`
	OwnerID     string    `gorm:"type:varchar(32);not null;index"`
	Company     string    `gorm:"size:100;not null"`
	Position    string    `gorm:"size:100;not null"`
	StartDate   time.Time `gorm:"not null"`
	EndDate     *time.Time
	IsCurrent   bool      `gorm:"not null;default:false"`
	Description string    `gorm:"size:500"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (WorkExperienceModel) TableName() string { return "work_experiences" }

type PortfolioModel struct {
	ID            string    `gorm:"primaryKey;type:varchar(32)"`
	OwnerID       string    `gorm:"type:varchar(32);not null;index"`
	Title         string    `gorm:"size:255;not null"`
	ThumbnailPath *string   `gorm:"size:255"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (PortfolioModel) TableName() string { return "portfolios" }

type LikeModel struct {
	ID          string    `gorm:"primaryKey;type:varchar(32)"`
	AccountID   string    `gorm:"type:varchar(32);not null;index"`
	PortfolioID string    `gorm:"type:varchar(32);not null;index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (LikeModel) TableName() string { return "likes" }

type CommentModel struct {
	ID          string    `gorm:"primaryKey;type:varchar(32)"`
	AccountID   string    `gorm:"type:varchar(32);not null;index"`
	PortfolioID string    `gorm:"type:varchar(32);not null;index"`
	Body        string    `gorm:"size:2000;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (CommentModel) TableName() string { return "comments" }

type CategoryModel struct {
	ID   string `gorm:"primaryKey;type:varchar(32)"`
	Name string `gorm:"size:100;not null;uniqueIndex"`
}

func (CategoryModel) TableName() string { return "categories" }

type CategoryPortfolioModel struct {
	ID          string `gorm:"primaryKey;type:varchar(32)"`
	PortfolioID string `gorm:"type:varchar(32);not null;index"`
	CategoryID  string `gorm:"type:varchar(32);not null;index"`
}

func (CategoryPortfolioModel) TableName() string { return "category_portfolios" }

// Models lists every table owned by this feature in migration order.
func Models() []any {
	return []any{
		&AccountModel{},
		&WorkExperienceModel{},
		&PortfolioModel{},
		&LikeModel{},
		&CommentModel{},
		&CategoryModel{},
		&CategoryPortfolioModel{},
	}
}

func (m *AccountModel) ToDomain() *domain.Account {
	a := &domain.Account{
		ID:        m.ID,
		Provider:  m.Provider,
		Email:     m.Email,
		Username:  m.Username,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Role:      m.Role,
		Profile: domain.Profile{
			About:      m.About,
			Occupation: m.Occupation,
			Company:    m.Company,
			Location:   m.Location,
			City:       m.City,
			Website:    m.Website,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		Lifecycle: domain.Active(),
	}
	if m.ProviderSubjectID != nil {
		a.ProviderSubjectID = *m.ProviderSubjectID
	}
	if m.AvatarPath != nil {
		a.AvatarPath = *m.AvatarPath
	}
	if m.AvatarURL != nil {
		a.AvatarURL = *m.AvatarURL
	}
	if m.DeletedAt.Valid {
		a.Lifecycle = domain.SoftDeletedAt(m.DeletedAt.Time)
	}
	return a
}

func AccountFromDomain(a *domain.Account) *AccountModel {
	m := &AccountModel{
		ID:                a.ID,
		Provider:          a.Provider,
		ProviderSubjectID: nullable(a.ProviderSubjectID),
		Email:             a.Email,
		Username:          a.Username,
		FirstName:         a.FirstName,
		LastName:          a.LastName,
		Role:              a.Role,
		About:             a.Profile.About,
		Occupation:        a.Profile.Occupation,
		Company:           a.Profile.Company,
		Location:          a.Profile.Location,
		City:              a.Profile.City,
		Website:           a.Profile.Website,
		AvatarPath:        nullable(a.AvatarPath),
		AvatarURL:         nullable(a.AvatarURL),
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
	if a.IsSoftDeleted() {
		m.DeletedAt = gorm.DeletedAt{Time: a.Lifecycle.DeletedAt, Valid: true}
	}
	return m
}

func (m *PortfolioModel) ToDomain() domain.Portfolio {
	p := domain.Portfolio{ID: m.ID, OwnerID: m.OwnerID, Title: m.Title, CreatedAt: m.CreatedAt}
	if m.ThumbnailPath != nil {
		p.ThumbnailPath = *m.ThumbnailPath
	}
	return p
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
