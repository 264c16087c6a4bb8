package validation

import (
	"errors"
	"testing"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  bool
	}{
		{"valid", "user@example.com", true},
		{"valid with dot", "first.last@example.co.uk", true},
		{"empty", "", false},
		{"missing at", "userexample.com", false},
		{"missing domain", "user@", false},
		{"spaces inside", "us er@example.com", false},
		{"display name form", "User <user@example.com>", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidEmail(tt.email); got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestIsValidPhone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  bool
	}{
		{"valid local", "0703081617", true},
		{"valid international", "+94703081617", true},
		{"too short", "12345", false},
		{"letters", "07030abc17", false},
		{"empty", "", false},
		{"too long", "1234567890123456", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidPhone(tt.phone); got != tt.want {
				t.Errorf("IsValidPhone(%q) = %v, want %v", tt.phone, got, tt.want)
			}
		})
	}
}

func TestValidateCustomer(t *testing.T) {
	err := ValidateCustomer("Jane", "Doe", "jane@example.com", "0703081617", "12 Main St", "Colombo", "10100")
	if err != nil {
		t.Fatalf("valid customer rejected: %v", err)
	}

	err = ValidateCustomer("", "Doe", "jane@example.com", "0703081617", "12 Main St", "Colombo", "10100")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing first name, got %v", err)
	}

	err = ValidateCustomer("Jane", "Doe", "not-an-email", "0703081617", "12 Main St", "Colombo", "10100")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for bad email, got %v", err)
	}

	err = ValidateCustomer("Jane", "Doe", "jane@example.com", "phone", "12 Main St", "Colombo", "10100")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for bad phone, got %v", err)
	}
}

func TestValidateCredentials(t *testing.T) {
	if err := ValidateCredentials("user@example.com", "secret1"); err != nil {
		t.Fatalf("valid credentials rejected: %v", err)
	}
	if err := ValidateCredentials("bad", "secret1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for bad email, got %v", err)
	}
	if err := ValidateCredentials("user@example.com", "short"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for short password, got %v", err)
	}
}
