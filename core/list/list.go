package list

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/user"
)

var ErrNotFound = core.NewNotFoundError("List not found")

type List struct {
	ID          int         `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Description null.String `json:"description" db:"description"`
	TotalCount  int         `json:"totalCount" db:"total_count"`
	CreatedBy   null.Int    `json:"createdBy" db:"created_by"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" db:"updated_at"`
}

type NewList struct {
	Name        string  `json:"name" validate:"notblank"`
	Description *string `json:"description"`
}

type (
	Repository interface {
		CreateList(ctx context.Context, l List, exec ...core.DBExecutor) (List, error)
		GetList(ctx context.Context, id int, exec ...core.DBExecutor) (List, error)
		QueryLists(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]List, error)
		// IncrementTotalCount adds n to the list's totalCount.
		IncrementTotalCount(ctx context.Context, id, n int, exec ...core.DBExecutor) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, actor user.User, nl NewList) (List, error) {
	now := time.Now().UTC()
	return svc.repo.CreateList(ctx, List{
		Name:        core.CleanString(nl.Name),
		Description: null.StringFromPtr(nl.Description),
		CreatedBy:   null.IntFrom(actor.ID),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// GetByID returns nil when the list does not exist.
func (svc *Service) GetByID(ctx context.Context, id int) (*List, error) {
	l, err := svc.repo.GetList(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]List, error) {
	return svc.repo.QueryLists(ctx, []core.DBOrdering{{Field: "created_at"}})
}
