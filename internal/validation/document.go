package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxDocumentIDLen = 256
	MaxTitleLen      = 1024
)

// ValidateDocumentID проверяет id документа. Пустой id допустим: его назначит хранилище.
func ValidateDocumentID(id string) error {
	if len(id) > MaxDocumentIDLen {
		return fmt.Errorf("%w: document id must not exceed %d bytes", ErrInvalid, MaxDocumentIDLen)
	}
	if strings.ContainsRune(id, 0) {
		return fmt.Errorf("%w: document id must not contain NUL", ErrInvalid)
	}
	if strings.TrimSpace(id) != id {
		return fmt.Errorf("%w: document id must not start or end with whitespace", ErrInvalid)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%w: document id must be valid UTF-8", ErrInvalid)
	}
	return nil
}

// ValidateTitle проверяет заголовок документа
func ValidateTitle(title string) error {
	if len(title) > MaxTitleLen {
		return fmt.Errorf("%w: title must not exceed %d bytes", ErrInvalid, MaxTitleLen)
	}
	if strings.ContainsAny(title, "\r\n") {
		return fmt.Errorf("%w: title must be a single line", ErrInvalid)
	}
	if !utf8.ValidString(title) {
		return fmt.Errorf("%w: title must be valid UTF-8", ErrInvalid)
	}
	return nil
}

// ValidateBody проверяет тело документа. Хеш ревизии считается по байтам,
// а JSON заменяет невалидный UTF-8 на U+FFFD, поэтому такое тело не пережило бы репликацию.
func ValidateBody(body string) error {
	if !utf8.ValidString(body) {
		return fmt.Errorf("%w: body must be valid UTF-8", ErrInvalid)
	}
	return nil
}
