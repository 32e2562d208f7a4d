package account

import (
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

func TestGenerateID(t *testing.T) {
	for i := 0; i < 1000; i++ {
		id := GenerateID()
		if !IsValidID(id) {
			t.Fatalf("generated invalid id %q", id)
		}
	}
}

func TestIsValidID(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1000000", true},
		{"9999999", true},
		{"0123456", false},
		{"123456", false},
		{"12345678", false},
		{"12a4567", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsValidID(tt.in); got != tt.want {
			t.Fatalf("IsValidID(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewFromCreateRequest_DefaultsAndNormalization(t *testing.T) {
	now := time.Date(2026, 3, 1, 22, 30, 0, 0, time.UTC)

	req := CreateAccountRequest{
		AccountHolderName: "  Jane Doe ",
		DOB:               "1990-04-12",
		Gender:            "female",
		Email:             "jane@example.com",
		Phone:             "0501234567",
		Address:           "1 Main Street",
		ZipCode:           "12345",
		AccountType:       "SAVINGS",
		Services:          ptr(" SMS Alerts , ,Debit Card "),
		MarketingOptIn:    ptr(true),
		AgreedToTerms:     ptr(true),
	}

	a := NewFromCreateRequest(req, "1234567", now)

	if a.ID != "1234567" {
		t.Fatalf("id: got %q", a.ID)
	}
	if a.AccountHolderName != "Jane Doe" {
		t.Fatalf("name not trimmed: %q", a.AccountHolderName)
	}
	if a.Gender != "Female" || a.AccountType != "Savings" {
		t.Fatalf("enums not canonical: gender=%q type=%q", a.Gender, a.AccountType)
	}
	if a.Status != DefaultStatus {
		t.Fatalf("status default: got %q", a.Status)
	}
	if a.Balance != 0 {
		t.Fatalf("balance default: got %v", a.Balance)
	}
	if a.DateOpened != "2026-03-01" {
		t.Fatalf("date_opened default: got %q", a.DateOpened)
	}
	if a.Services != "SMS Alerts,Debit Card" {
		t.Fatalf("services: got %q", a.Services)
	}
	if !a.MarketingOptIn || !a.AgreedToTerms {
		t.Fatalf("booleans not copied: %+v", a)
	}
}

func TestApplyUpdate_KeepsImmutableFields(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := Account{
		ID:            "7654321",
		DateOpened:    "2026-01-01",
		AgreedToTerms: true,
		Status:        "Active",
		CreatedAt:     created,
	}

	req := UpdateAccountRequest{
		AccountHolderName: "John Roe",
		DOB:               "1985-02-03",
		Gender:            "male",
		Email:             "john@example.com",
		Phone:             "0509876543",
		Address:           "22 Side Road",
		ZipCode:           "5432",
		AccountType:       "current",
		Balance:           ptr(250.5),
		Status:            "closed",
		Services:          ptr(""),
		MarketingOptIn:    ptr(false),
	}

	updated := ApplyUpdate(existing, req, created.Add(time.Hour))

	if updated.ID != existing.ID || updated.DateOpened != existing.DateOpened || !updated.AgreedToTerms {
		t.Fatalf("immutable fields changed: %+v", updated)
	}
	if updated.Status != "Closed" || updated.AccountType != "Current" || updated.Gender != "Male" {
		t.Fatalf("enums not canonical: %+v", updated)
	}
	if updated.Balance != 250.5 {
		t.Fatalf("balance: got %v", updated.Balance)
	}
	if !updated.CreatedAt.Equal(created) || !updated.UpdatedAt.Equal(created.Add(time.Hour)) {
		t.Fatalf("timestamps wrong: %+v", updated)
	}
}
