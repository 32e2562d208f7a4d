package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/bankdesk/internal/cache"
	"github.com/geocoder89/bankdesk/internal/config"
	"github.com/geocoder89/bankdesk/internal/domain/account"
	"github.com/geocoder89/bankdesk/internal/observability"
	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500

	msgAccountNotFound = "Account not found"
)

type AccountsStore interface {
	Create(ctx context.Context, req account.CreateAccountRequest) (account.Account, error)
	List(ctx context.Context, filter account.ListFilter) ([]account.Account, int, error)
	GetByID(ctx context.Context, id string) (account.Account, error)
	Update(ctx context.Context, id string, req account.UpdateAccountRequest) (account.Account, error)
	Delete(ctx context.Context, id string) error
}

type AccountsHandler struct {
	repo    AccountsStore
	cache   cache.Accounts
	metrics *observability.Prom
	log     *slog.Logger
}

// NewAccountsHandler wires the store and an optional read-through cache.
func NewAccountsHandler(repo AccountsStore, accountCache cache.Accounts, metrics *observability.Prom, log *slog.Logger) *AccountsHandler {
	if log == nil {
		log = slog.Default()
	}

	return &AccountsHandler{repo: repo, cache: accountCache, metrics: metrics, log: log}
}

func (h *AccountsHandler) CreateAccount(ctx *gin.Context) {
	var req account.CreateAccountRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	created, err := h.repo.Create(cctx, req)
	if err != nil {
		if errors.Is(err, account.ErrIDExhausted) {
			h.log.ErrorContext(cctx, "account id space congested", "err", err)
			RespondUnavailable(ctx, "Could not allocate an account id, try again")
			return
		}
		h.log.ErrorContext(cctx, "create account failed", "err", err)
		RespondInternal(ctx, "Could not create account")
		return
	}

	h.log.InfoContext(cctx, "account created", "account_id", created.ID)

	ctx.JSON(http.StatusOK, gin.H{
		"account_id": created.ID,
		"message":    "Account created successfully",
	})
}

func (h *AccountsHandler) ListAccounts(ctx *gin.Context) {
	filter, details := parseListFilter(ctx)
	if details != nil {
		RespondUnprocessable(ctx, "Invalid query parameters", details)
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	items, total, err := h.repo.List(cctx, filter)
	if err != nil {
		h.log.ErrorContext(cctx, "list accounts failed", "err", err)
		RespondInternal(ctx, "Could not list accounts")
		return
	}

	ctx.Header("X-Total-Count", strconv.Itoa(total))
	ctx.JSON(http.StatusOK, items)
}

func (h *AccountsHandler) GetAccountByID(ctx *gin.Context) {
	id, ok := accountIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if a, hit := h.cached(cctx, id); hit {
		RespondJSONWithETag(ctx, http.StatusOK, a)
		return
	}

	readAt := time.Now()

	a, err := h.repo.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			RespondNotFound(ctx, msgAccountNotFound)
			return
		}
		h.log.ErrorContext(cctx, "get account failed", "err", err, "account_id", id)
		RespondInternal(ctx, "Could not fetch account")
		return
	}

	h.remember(cctx, a, readAt)

	RespondJSONWithETag(ctx, http.StatusOK, a)
}

func (h *AccountsHandler) UpdateAccount(ctx *gin.Context) {
	id, ok := accountIDParam(ctx)
	if !ok {
		return
	}

	var req account.UpdateAccountRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	updated, err := h.repo.Update(cctx, id, req)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			RespondNotFound(ctx, msgAccountNotFound)
			return
		}
		h.log.ErrorContext(cctx, "update account failed", "err", err, "account_id", id)
		RespondInternal(ctx, "Could not update account")
		return
	}

	h.forget(cctx, updated.ID)

	ctx.JSON(http.StatusOK, gin.H{"message": "Account updated successfully"})
}

func (h *AccountsHandler) DeleteAccount(ctx *gin.Context) {
	id, ok := accountIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			RespondNotFound(ctx, msgAccountNotFound)
			return
		}
		h.log.ErrorContext(cctx, "delete account failed", "err", err, "account_id", id)
		RespondInternal(ctx, "Could not delete account")
		return
	}

	h.forget(cctx, id)
	h.log.InfoContext(cctx, "account deleted", "account_id", id)

	ctx.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}

// accountIDParam answers 404 for anything that can never be an account id,
// so malformed ids never reach storage.
func accountIDParam(ctx *gin.Context) (string, bool) {
	id := strings.TrimSpace(ctx.Param("id"))
	if !account.IsValidID(id) {
		RespondNotFound(ctx, msgAccountNotFound)
		return "", false
	}
	return id, true
}

func parseListFilter(ctx *gin.Context) (account.ListFilter, []FieldError) {
	filter := account.ListFilter{Limit: defaultListLimit}
	var fields []FieldError

	if v := strings.TrimSpace(ctx.Query("status")); v != "" {
		if !account.IsOneOf(account.Statuses, v) {
			fields = append(fields, enumFieldError("status", account.Statuses))
		} else {
			canonical := account.Canonical(account.Statuses, v)
			filter.Status = &canonical
		}
	}

	if v := strings.TrimSpace(ctx.Query("account_type")); v != "" {
		if !account.IsOneOf(account.AccountTypes, v) {
			fields = append(fields, enumFieldError("account_type", account.AccountTypes))
		} else {
			canonical := account.Canonical(account.AccountTypes, v)
			filter.AccountType = &canonical
		}
	}

	if v := ctx.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			fields = append(fields, FieldError{Field: "limit", Rule: "range", Param: "1-" + strconv.Itoa(maxListLimit), Message: "must be an integer between 1 and " + strconv.Itoa(maxListLimit)})
		} else {
			filter.Limit = n
		}
	}

	if v := ctx.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fields = append(fields, FieldError{Field: "offset", Rule: "gte", Param: "0", Message: validationMessage("gte", "0")})
		} else {
			filter.Offset = n
		}
	}

	if len(fields) > 0 {
		return filter, fields
	}
	return filter, nil
}

func enumFieldError(field string, options []string) FieldError {
	param := strings.Join(options, " ")
	return FieldError{Field: field, Rule: "oneofci", Param: param, Message: validationMessage("oneofci", param)}
}

// cache helpers: a broken cache degrades to a miss, never to an error response

func (h *AccountsHandler) cached(ctx context.Context, id string) (account.Account, bool) {
	if h.cache == nil {
		return account.Account{}, false
	}

	a, ok, err := h.cache.Get(ctx, id)
	if err != nil {
		h.log.WarnContext(ctx, "account cache read failed", "err", err, "account_id", id)
		h.metrics.CacheResult("error")
		return account.Account{}, false
	}
	if !ok {
		h.metrics.CacheResult("miss")
		return account.Account{}, false
	}

	h.metrics.CacheResult("hit")
	return a, true
}

// remember caches a row read at readAt unless a write invalidated it since.
func (h *AccountsHandler) remember(ctx context.Context, a account.Account, readAt time.Time) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Set(ctx, a, readAt); err != nil {
		h.log.WarnContext(ctx, "account cache write failed", "err", err, "account_id", a.ID)
	}
}

func (h *AccountsHandler) forget(ctx context.Context, id string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Delete(ctx, id); err != nil {
		h.log.WarnContext(ctx, "account cache invalidate failed", "err", err, "account_id", id)
	}
}
