package inmemory

import (
	"context"

	"github.com/chaindex-network/chaindexd/internal/core/domain"
	"github.com/chaindex-network/chaindexd/internal/core/ports"
)

// RepoManager is a volatile storage implementation, mainly used by tests.
// Handlers run by RunTransaction apply their writes directly; processors
// undo their own partial effects, so the all-or-nothing semantics of the
// persistent implementation is preserved at the caller level.
type RepoManager struct {
	pairRepository  domain.PairRepository
	orderRepository domain.OrderRepository
	dealRepository  domain.DealRepository
}

// NewRepoManager returns a RepoManager with empty stores.
func NewRepoManager() ports.RepoManager {
	return &RepoManager{
		pairRepository:  NewPairRepositoryImpl(),
		orderRepository: NewOrderRepositoryImpl(),
		dealRepository:  NewDealRepositoryImpl(),
	}
}

func (d *RepoManager) PairRepository() domain.PairRepository {
	return d.pairRepository
}

func (d *RepoManager) OrderRepository() domain.OrderRepository {
	return d.orderRepository
}

func (d *RepoManager) DealRepository() domain.DealRepository {
	return d.dealRepository
}

func (d *RepoManager) RunTransaction(
	ctx context.Context,
	_ bool,
	handler func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	return handler(ctx)
}

func (d *RepoManager) Close() {}
