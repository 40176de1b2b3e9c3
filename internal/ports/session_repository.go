package ports

import (
	"context"

	"github.com/bnema/livesync-cli/internal/domain"
)

type SessionRepository interface {
	GetByProjectDir(ctx context.Context, projectDir string) (domain.SessionSnapshot, error)
	List(ctx context.Context) ([]domain.SessionSnapshot, error)
	Save(ctx context.Context, snapshot domain.SessionSnapshot) error
	Delete(ctx context.Context, projectDir string) error
}
