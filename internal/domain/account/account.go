package account

import (
	"errors"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

const DefaultStatus = "Active"

var (
	ErrNotFound    = errors.New("account not found")
	ErrIDExhausted = errors.New("could not allocate a free account id")
)

var (
	Genders      = []string{"Male", "Female", "Other"}
	AccountTypes = []string{"Savings", "Current", "Salary"}
	Statuses     = []string{"Active", "Inactive", "Closed"}
)

type Account struct {
	ID                string    `json:"account_id"`
	AccountHolderName string    `json:"account_holder_name"`
	DOB               string    `json:"dob"`
	Gender            string    `json:"gender"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	Address           string    `json:"address"`
	ZipCode           string    `json:"zip_code"`
	AccountType       string    `json:"account_type"`
	Balance           float64   `json:"balance"`
	DateOpened        string    `json:"date_opened"`
	Status            string    `json:"status"`
	Services          string    `json:"services"`
	MarketingOptIn    bool      `json:"marketing_opt_in"`
	AgreedToTerms     bool      `json:"agreed_to_terms"`
	CreatedAt         time.Time `json:"-"`
	UpdatedAt         time.Time `json:"-"`
}

// Pointer fields distinguish "missing" from the zero value so that
// required booleans and optional numbers bind correctly.
type CreateAccountRequest struct {
	AccountHolderName string   `json:"account_holder_name" binding:"required,min=2,max=120"`
	DOB               string   `json:"dob" binding:"required,datetime=2006-01-02"`
	Gender            string   `json:"gender" binding:"required,oneofci=Male Female Other"`
	Email             string   `json:"email" binding:"required,email"`
	Phone             string   `json:"phone" binding:"required,min=10,max=20"`
	Address           string   `json:"address" binding:"required,min=5,max=255"`
	ZipCode           string   `json:"zip_code" binding:"required,min=4,max=10"`
	AccountType       string   `json:"account_type" binding:"required,oneofci=Savings Current Salary"`
	Balance           *float64 `json:"balance" binding:"omitempty,gte=0"`
	DateOpened        string   `json:"date_opened" binding:"omitempty,datetime=2006-01-02"`
	Status            string   `json:"status" binding:"omitempty,oneofci=Active Inactive Closed"`
	Services          *string  `json:"services" binding:"required,max=255"`
	MarketingOptIn    *bool    `json:"marketing_opt_in" binding:"required"`
	AgreedToTerms     *bool    `json:"agreed_to_terms" binding:"required,eq=true"`
}

// a full replacement of the mutable fields.
type UpdateAccountRequest struct {
	AccountHolderName string   `json:"account_holder_name" binding:"required,min=2,max=120"`
	DOB               string   `json:"dob" binding:"required,datetime=2006-01-02"`
	Gender            string   `json:"gender" binding:"required,oneofci=Male Female Other"`
	Email             string   `json:"email" binding:"required,email"`
	Phone             string   `json:"phone" binding:"required,min=10,max=20"`
	Address           string   `json:"address" binding:"required,min=5,max=255"`
	ZipCode           string   `json:"zip_code" binding:"required,min=4,max=10"`
	AccountType       string   `json:"account_type" binding:"required,oneofci=Savings Current Salary"`
	Balance           *float64 `json:"balance" binding:"required,gte=0"`
	Status            string   `json:"status" binding:"required,oneofci=Active Inactive Closed"`
	Services          *string  `json:"services" binding:"required,max=255"`
	MarketingOptIn    *bool    `json:"marketing_opt_in" binding:"required"`
}

type ListFilter struct {
	Status      *string
	AccountType *string
	Limit       int
	Offset      int
}

func NewFromCreateRequest(req CreateAccountRequest, id string, now time.Time) Account {
	now = now.UTC()

	a := Account{
		ID:                id,
		AccountHolderName: strings.TrimSpace(req.AccountHolderName),
		DOB:               req.DOB,
		Gender:            Canonical(Genders, req.Gender),
		Email:             strings.TrimSpace(req.Email),
		Phone:             strings.TrimSpace(req.Phone),
		Address:           strings.TrimSpace(req.Address),
		ZipCode:           strings.TrimSpace(req.ZipCode),
		AccountType:       Canonical(AccountTypes, req.AccountType),
		DateOpened:        req.DateOpened,
		Status:            DefaultStatus,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if req.Balance != nil {
		a.Balance = *req.Balance
	}
	if req.Status != "" {
		a.Status = Canonical(Statuses, req.Status)
	}
	if a.DateOpened == "" {
		a.DateOpened = now.Format(DateLayout)
	}
	if req.Services != nil {
		a.Services = NormalizeServices(*req.Services)
	}
	if req.MarketingOptIn != nil {
		a.MarketingOptIn = *req.MarketingOptIn
	}
	if req.AgreedToTerms != nil {
		a.AgreedToTerms = *req.AgreedToTerms
	}

	return a
}

// ApplyUpdate leaves id, date_opened and agreed_to_terms untouched.
func ApplyUpdate(existing Account, req UpdateAccountRequest, now time.Time) Account {
	a := existing

	a.AccountHolderName = strings.TrimSpace(req.AccountHolderName)
	a.DOB = req.DOB
	a.Gender = Canonical(Genders, req.Gender)
	a.Email = strings.TrimSpace(req.Email)
	a.Phone = strings.TrimSpace(req.Phone)
	a.Address = strings.TrimSpace(req.Address)
	a.ZipCode = strings.TrimSpace(req.ZipCode)
	a.AccountType = Canonical(AccountTypes, req.AccountType)
	a.Status = Canonical(Statuses, req.Status)
	if req.Balance != nil {
		a.Balance = *req.Balance
	}
	if req.Services != nil {
		a.Services = NormalizeServices(*req.Services)
	}
	if req.MarketingOptIn != nil {
		a.MarketingOptIn = *req.MarketingOptIn
	}
	a.UpdatedAt = now.UTC()

	return a
}

// Canonical returns the option matching v case-insensitively, or v trimmed
// when nothing matches.
func Canonical(options []string, v string) string {
	v = strings.TrimSpace(v)
	for _, o := range options {
		if strings.EqualFold(o, v) {
			return o
		}
	}
	return v
}

// IsOneOf reports whether v matches an option ignoring case.
func IsOneOf(options []string, v string) bool {
	v = strings.TrimSpace(v)
	for _, o := range options {
		if strings.EqualFold(o, v) {
			return true
		}
	}
	return false
}

func NormalizeServices(raw string) string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return strings.Join(out, ",")
}
