package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/bankdesk/internal/domain/account"
)

type AccountsRepo struct {
	mu    sync.RWMutex
	items map[string]account.Account
	newID func() string
}

func NewAccountsRepo() *AccountsRepo {
	return &AccountsRepo{
		items: make(map[string]account.Account),
		newID: account.GenerateID,
	}
}

// WithIDGenerator replaces the random id source, mostly for tests.
func (r *AccountsRepo) WithIDGenerator(fn func() string) *AccountsRepo {
	r.newID = fn
	return r
}

func (r *AccountsRepo) Create(_ context.Context, req account.CreateAccountRequest) (account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < account.MaxIDAttempts; attempt++ {
		id := r.newID()
		if _, taken := r.items[id]; taken {
			continue
		}

		a := account.NewFromCreateRequest(req, id, time.Now())
		r.items[id] = a
		return a, nil
	}

	return account.Account{}, account.ErrIDExhausted
}

func (r *AccountsRepo) List(_ context.Context, filter account.ListFilter) ([]account.Account, int, error) {
	r.mu.RLock()
	matched := make([]account.Account, 0, len(r.items))
	for _, a := range r.items {
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.AccountType != nil && a.AccountType != *filter.AccountType {
			continue
		}
		matched = append(matched, a)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].DateOpened != matched[j].DateOpened {
			return matched[i].DateOpened < matched[j].DateOpened
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)

	if filter.Offset >= total {
		return []account.Account{}, total, nil
	}

	end := total
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}

	return matched[filter.Offset:end], total, nil
}

func (r *AccountsRepo) GetByID(_ context.Context, id string) (account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return a, nil
}

func (r *AccountsRepo) Update(_ context.Context, id string, req account.UpdateAccountRequest) (account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}

	updated := account.ApplyUpdate(existing, req, time.Now())
	r.items[id] = updated

	return updated, nil
}

func (r *AccountsRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return account.ErrNotFound
	}

	delete(r.items, id)
	return nil
}
