package ports

import (
	"context"

	"github.com/bnema/livesync-cli/internal/domain"
)

type RuleRepository interface {
	List(ctx context.Context) ([]domain.RuleDefinition, error)
}
