package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength    = 3
	MaxUsernameLength    = 30
	MaxDescriptionLength = 3000
	MaxHashtagLength     = 100
	MaxHashtagsCount     = 30
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// ValidateLength проверяет длину строки в рунах.
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

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateUsername проверяет имя пользователя.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("имя пользователя обязательно")
	}

	username = strings.TrimSpace(username)

	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}

	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("имя пользователя может содержать только латиницу, цифры и символы _.-")
	}

	return nil
}

// ValidateDescription проверяет исходное описание поста.
func ValidateDescription(description string) error {
	if err := ValidateNonEmpty("описание", description); err != nil {
		return err
	}
	return ValidateLength("описание", description, 0, MaxDescriptionLength)
}

// ValidateHashtags проверяет список хэштегов.
func ValidateHashtags(hashtags []string) error {
	if len(hashtags) > MaxHashtagsCount {
		return fmt.Errorf("хэштегов должно быть не более %d", MaxHashtagsCount)
	}
	for _, tag := range hashtags {
		if err := ValidateLength("хэштег", tag, 0, MaxHashtagLength); err != nil {
			return err
		}
	}
	return nil
}
