// Package validation содержит проверки форм оформления заказа и регистрации.
package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// ErrValidation возвращается при некорректной форме входных данных.
// Ошибка восстановима: форма показывается пользователю заново.
var ErrValidation = errors.New("validation failed")

// IsValidEmail проверяет, что строка является синтаксически корректным адресом.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email
}

// IsValidPhone проверяет номер телефона: только цифры, допускается ведущий «+».
func IsValidPhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	phone = strings.TrimPrefix(phone, "+")
	if len(phone) < 7 || len(phone) > 15 {
		return false
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidateCredentials проверяет пару email/пароль для регистрации и входа.
func ValidateCredentials(email, password string) error {
	if !IsValidEmail(email) {
		return fmt.Errorf("%w: email", ErrValidation)
	}
	if len(password) < 6 {
		return fmt.Errorf("%w: password too short", ErrValidation)
	}
	return nil
}

// ValidateCustomer проверяет контактные данные формы оформления заказа.
// Все поля формы обязательны.
func ValidateCustomer(firstName, lastName, email, phone, address, city, zipCode string) error {
	required := map[string]string{
		"firstName": firstName,
		"lastName":  lastName,
		"address":   address,
		"city":      city,
		"zipCode":   zipCode,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s is required", ErrValidation, field)
		}
	}
	if !IsValidEmail(email) {
		return fmt.Errorf("%w: email", ErrValidation)
	}
	if !IsValidPhone(phone) {
		return fmt.Errorf("%w: phone", ErrValidation)
	}
	return nil
}
