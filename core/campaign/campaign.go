package campaign

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/user"
)

var ErrNotFound = core.NewNotFoundError("Campaign not found")

type Campaign struct {
	ID          int         `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Description null.String `json:"description" db:"description"`
	CreatedBy   null.Int    `json:"createdBy" db:"created_by"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" db:"updated_at"`
}

type NewCampaign struct {
	Name        string  `json:"name" validate:"notblank"`
	Description *string `json:"description"`
}

type (
	Repository interface {
		CreateCampaign(ctx context.Context, c Campaign, exec ...core.DBExecutor) (Campaign, error)
		GetCampaign(ctx context.Context, id int, exec ...core.DBExecutor) (Campaign, error)
		QueryCampaigns(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Campaign, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, actor user.User, nc NewCampaign) (Campaign, error) {
	now := time.Now().UTC()
	return svc.repo.CreateCampaign(ctx, Campaign{
		Name:        core.CleanString(nc.Name),
		Description: null.StringFromPtr(nc.Description),
		CreatedBy:   null.IntFrom(actor.ID),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// GetByID returns nil when the campaign does not exist.
func (svc *Service) GetByID(ctx context.Context, id int) (*Campaign, error) {
	c, err := svc.repo.GetCampaign(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Campaign, error) {
	return svc.repo.QueryCampaigns(ctx, []core.DBOrdering{{Field: "created_at"}})
}
