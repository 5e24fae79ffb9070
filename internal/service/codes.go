package service

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	DefaultCodePrefix = "SHT"
	codeBodyLength    = 8
	codeAlphabet      = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// NewBookingCode генерирует код вида SHT7K2MQ9XA: префикс из трёх букв и 8 символов без похожих O/0, I/1
func NewBookingCode(prefix string) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if len(prefix) != 3 || strings.Trim(prefix, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") != "" {
		return "", fmt.Errorf("booking code prefix must be 3 letters, got %q", prefix)
	}

	body, err := gonanoid.Generate(codeAlphabet, codeBodyLength)
	if err != nil {
		return "", fmt.Errorf("generate booking code: %w", err)
	}

	return prefix + body, nil
}
