package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength     = 3
	MaxUsernameLength     = 30
	MinItemNameLength     = 2
	MaxItemNameLength     = 255
	MinDescriptionLength  = 5
	MaxDescriptionLength  = 5000
	MaxCategoryLength     = 100
	MaxLocationLength     = 255
	MinClaimDetailsLength = 5
	MaxClaimDetailsLength = 2000
	MaxFullNameLength     = 100
	MinPhoneLength        = 7
	MaxPhoneLength        = 15
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	if !strings.Contains(email, "@") {
		return fmt.Errorf("email должен содержать символ @")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}

	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	if !strings.Contains(domainPart, ".") {
		return fmt.Errorf("домен email должен содержать точку")
	}

	return nil
}

// ValidatePhone проверяет контактный телефон: цифры, опциональный плюс в начале.
func ValidatePhone(phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return fmt.Errorf("телефон обязателен")
	}

	digits := phone
	if strings.HasPrefix(digits, "+") {
		digits = digits[1:]
	}

	if len(digits) < MinPhoneLength || len(digits) > MaxPhoneLength {
		return fmt.Errorf("телефон должен содержать от %d до %d цифр", MinPhoneLength, MaxPhoneLength)
	}

	for _, r := range digits {
		if !unicode.IsDigit(r) {
			return fmt.Errorf("телефон может содержать только цифры и знак + в начале")
		}
	}

	return nil
}

// ValidateUsername проверяет имя пользователя.
func ValidateUsername(username string) error {
	if err := ValidateLength("username", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}

	for _, r := range username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' && r != '.' {
			return fmt.Errorf("username может содержать только буквы, цифры и символы _ - .")
		}
	}

	return nil
}

// ValidateDate проверяет дату в формате YYYY-MM-DD.
func ValidateDate(value string) error {
	if value == "" {
		return fmt.Errorf("дата обязательна")
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return fmt.Errorf("дата должна быть в формате YYYY-MM-DD")
	}
	return nil
}
