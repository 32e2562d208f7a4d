package integration_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/geocoder89/bankdesk/internal/domain/account"
)

const accountBody = `{
	"account_holder_name": "Amina Yusuf",
	"dob": "1992-03-14",
	"gender": "Female",
	"email": "amina@example.com",
	"phone": "08031234567",
	"address": "3 Marina Road",
	"zip_code": "101001",
	"account_type": "Salary",
	"balance": 5000.5,
	"services": "Internet Banking,SMS Alerts",
	"marketing_opt_in": true,
	"agreed_to_terms": true
}`

func TestAccountsIntegration_CRUD(t *testing.T) {
	router, pool := setupRouter(t)

	clerk, _ := loginAs(t, router, "clerk", "clerk-pass")
	manager, _ := loginAs(t, router, "manager", "manager-pass")

	w, _ := doRequest(router, http.MethodPost, "/accounts", clerk.AccessToken, accountBody)
	if w.Code != http.StatusOK {
		t.Fatalf("create got status %d, body=%s", w.Code, w.Body.String())
	}

	var created struct {
		AccountID string `json:"account_id"`
	}
	mustReadJSON(t, w, &created)
	if !account.IsValidID(created.AccountID) {
		t.Fatalf("invalid account id %q", created.AccountID)
	}

	var stored float64
	if err := pool.QueryRow(context.Background(), `SELECT balance FROM accounts WHERE account_id = $1`, created.AccountID).Scan(&stored); err != nil {
		t.Fatalf("row not persisted: %v", err)
	}
	if stored != 5000.5 {
		t.Fatalf("balance = %v", stored)
	}

	w, _ = doRequest(router, http.MethodGet, "/accounts?account_type=salary", clerk.AccessToken, "")
	if w.Code != http.StatusOK || w.Header().Get("X-Total-Count") != "1" {
		t.Fatalf("list got status %d total=%q", w.Code, w.Header().Get("X-Total-Count"))
	}

	update := strings.Replace(accountBody, `"balance": 5000.5`, `"balance": 0, "status": "Inactive"`, 1)
	w, _ = doRequest(router, http.MethodPut, "/accounts/"+created.AccountID, clerk.AccessToken, update)
	if w.Code != http.StatusOK {
		t.Fatalf("update got status %d, body=%s", w.Code, w.Body.String())
	}

	var a account.Account
	w, _ = doRequest(router, http.MethodGet, "/accounts/"+created.AccountID, clerk.AccessToken, "")
	mustReadJSON(t, w, &a)
	if a.Status != "Inactive" || a.Balance != 0 {
		t.Fatalf("update not applied: %+v", a)
	}

	w, _ = doRequest(router, http.MethodDelete, "/accounts/"+created.AccountID, clerk.AccessToken, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("clerk delete got status %d", w.Code)
	}

	w, _ = doRequest(router, http.MethodDelete, "/accounts/"+created.AccountID, manager.AccessToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("manager delete got status %d", w.Code)
	}

	w, _ = doRequest(router, http.MethodGet, "/accounts/"+created.AccountID, clerk.AccessToken, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete got status %d", w.Code)
	}
}

func TestAccountsIntegration_PaginationPastEnd(t *testing.T) {
	router, _ := setupRouter(t)
	clerk, _ := loginAs(t, router, "clerk", "clerk-pass")

	for i := 0; i < 3; i++ {
		if w, _ := doRequest(router, http.MethodPost, "/accounts", clerk.AccessToken, accountBody); w.Code != http.StatusOK {
			t.Fatalf("create %d got status %d", i, w.Code)
		}
	}

	w, _ := doRequest(router, http.MethodGet, "/accounts?limit=2&offset=10", clerk.AccessToken, "")
	if w.Code != http.StatusOK || w.Body.String() != "[]" || w.Header().Get("X-Total-Count") != "3" {
		t.Fatalf("got %d body=%s total=%q", w.Code, w.Body.String(), w.Header().Get("X-Total-Count"))
	}
}
