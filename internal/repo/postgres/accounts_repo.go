package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/bankdesk/internal/domain/account"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountsRepo struct {
	pool  *pgxpool.Pool
	obs   DBObserver
	newID func() string
}

// constructor function

func NewAccountsRepo(pool *pgxpool.Pool, obs DBObserver) *AccountsRepo {
	return &AccountsRepo{
		pool:  pool,
		obs:   observerOrNoop(obs),
		newID: account.GenerateID,
	}
}

const accountColumns = `account_id,
		account_holder_name,
		dob,
		gender,
		email,
		phone,
		address,
		zip_code,
		account_type,
		balance,
		date_opened,
		status,
		services,
		marketing_opt_in,
		agreed_to_terms,
		created_at,
		updated_at`

func accountScanTargets(a *account.Account) []any {
	return []any{
		&a.ID,
		&a.AccountHolderName,
		&a.DOB,
		&a.Gender,
		&a.Email,
		&a.Phone,
		&a.Address,
		&a.ZipCode,
		&a.AccountType,
		&a.Balance,
		&a.DateOpened,
		&a.Status,
		&a.Services,
		&a.MarketingOptIn,
		&a.AgreedToTerms,
		&a.CreatedAt,
		&a.UpdatedAt,
	}
}

// Create draws random ids until one is free. ON CONFLICT keeps a collision
// from aborting anything, an unaffected row just means "try another id".
func (r *AccountsRepo) Create(ctx context.Context, req account.CreateAccountRequest) (account.Account, error) {
	for attempt := 0; attempt < account.MaxIDAttempts; attempt++ {
		a := account.NewFromCreateRequest(req, r.newID(), time.Now())

		inserted := false

		err := r.obs.ObserveDB("accounts.create", func() error {
			tag, err := r.pool.Exec(ctx,
				`INSERT INTO accounts (`+accountColumns+`)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
				ON CONFLICT (account_id) DO NOTHING`,
				a.ID, a.AccountHolderName, a.DOB, a.Gender, a.Email, a.Phone, a.Address, a.ZipCode,
				a.AccountType, a.Balance, a.DateOpened, a.Status, a.Services, a.MarketingOptIn,
				a.AgreedToTerms, a.CreatedAt, a.UpdatedAt,
			)
			if err != nil {
				return err
			}
			inserted = tag.RowsAffected() == 1
			return nil
		})

		if err != nil {
			return account.Account{}, err
		}

		if inserted {
			return a, nil
		}
	}

	return account.Account{}, account.ErrIDExhausted
}

func (r *AccountsRepo) List(ctx context.Context, filter account.ListFilter) ([]account.Account, int, error) {
	baseQuery := `SELECT ` + accountColumns + `,
		COUNT(*) OVER() AS total
	FROM accounts
	`

	var conds []string
	var args []interface{}

	argsPosition := 1

	if filter.Status != nil {
		conds = append(conds, fmt.Sprintf("status = $%d", argsPosition))
		args = append(args, *filter.Status)
		argsPosition++
	}

	if filter.AccountType != nil {
		conds = append(conds, fmt.Sprintf("account_type = $%d", argsPosition))
		args = append(args, *filter.AccountType)
		argsPosition++
	}

	query := baseQuery

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// stable ordering for pagination
	query += fmt.Sprintf(" ORDER BY date_opened ASC, account_id ASC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)

	args = append(args, filter.Limit, filter.Offset)

	output := make([]account.Account, 0, filter.Limit)
	total := 0

	err := r.obs.ObserveDB("accounts.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var a account.Account
			var t int

			err = rows.Scan(append(accountScanTargets(&a), &t)...)
			if err != nil {
				return err
			}

			total = t
			output = append(output, a)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	// an offset past the end yields no rows and so no window count
	if len(output) == 0 && filter.Offset > 0 {
		total, err = r.count(ctx, conds, args[:len(args)-2])
		if err != nil {
			return nil, 0, err
		}
	}

	return output, total, nil
}

func (r *AccountsRepo) count(ctx context.Context, conds []string, args []interface{}) (int, error) {
	query := `SELECT COUNT(*) FROM accounts`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	err := r.obs.ObserveDB("accounts.count", func() error {
		return r.pool.QueryRow(ctx, query, args...).Scan(&total)
	})

	return total, err
}

func (r *AccountsRepo) GetByID(ctx context.Context, id string) (account.Account, error) {
	var a account.Account
	missing := false

	err := r.obs.ObserveDB("accounts.get", func() error {
		err := r.pool.QueryRow(ctx,
			`SELECT `+accountColumns+` FROM accounts WHERE account_id = $1`, id,
		).Scan(accountScanTargets(&a)...)

		if errors.Is(err, pgx.ErrNoRows) {
			missing = true
			return nil
		}
		return err
	})

	if err != nil {
		return account.Account{}, err
	}
	if missing {
		return account.Account{}, account.ErrNotFound
	}

	return a, nil
}

func (r *AccountsRepo) Update(ctx context.Context, id string, req account.UpdateAccountRequest) (account.Account, error) {
	// normalization lives in the domain package, so apply it to a blank record
	// and write only the mutable columns
	u := account.ApplyUpdate(account.Account{}, req, time.Now())

	var a account.Account
	missing := false

	err := r.obs.ObserveDB("accounts.update", func() error {
		err := r.pool.QueryRow(
			ctx,
			`UPDATE accounts
				SET account_holder_name = $2,
						dob = $3,
						gender = $4,
						email = $5,
						phone = $6,
						address = $7,
						zip_code = $8,
						account_type = $9,
						balance = $10,
						status = $11,
						services = $12,
						marketing_opt_in = $13,
						updated_at = $14
			WHERE account_id = $1
			RETURNING `+accountColumns,
			id,
			u.AccountHolderName,
			u.DOB,
			u.Gender,
			u.Email,
			u.Phone,
			u.Address,
			u.ZipCode,
			u.AccountType,
			u.Balance,
			u.Status,
			u.Services,
			u.MarketingOptIn,
			u.UpdatedAt,
		).Scan(accountScanTargets(&a)...)

		// if there are no rows matching the id
		if errors.Is(err, pgx.ErrNoRows) {
			missing = true
			return nil
		}
		return err
	})

	if err != nil {
		return account.Account{}, err
	}
	if missing {
		return account.Account{}, account.ErrNotFound
	}

	return a, nil
}

func (r *AccountsRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.obs.ObserveDB("accounts.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE account_id = $1`, id)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})

	if err != nil {
		return err
	}

	// if no rows were deleted as a result return a not found error
	if affected == 0 {
		return account.ErrNotFound
	}

	return nil
}
