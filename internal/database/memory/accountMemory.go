package memory

import (
	"context"
	"strings"

	"github.com/ds124wfegd/parkingbooker/internal/database"
	"github.com/ds124wfegd/parkingbooker/internal/entity"
)

type accountRepository struct {
	store *Store
}

func NewAccountRepository(store *Store) database.AccountRepository {
	return &accountRepository{store: store}
}

func (r *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.addAccount(account)
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	a, ok := r.store.accounts[id]
	if !ok {
		return nil, entity.ErrAccountNotFound
	}
	return a.Clone(), nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, id := range r.store.accountOrder {
		if a := r.store.accounts[id]; strings.EqualFold(a.Email, email) {
			return a.Clone(), nil
		}
	}
	return nil, entity.ErrAccountNotFound
}

func (r *accountRepository) GetAll(ctx context.Context) ([]*entity.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	accounts := make([]*entity.Account, 0, len(r.store.accountOrder))
	for _, id := range r.store.accountOrder {
		accounts = append(accounts, r.store.accounts[id].Clone())
	}
	return accounts, nil
}
