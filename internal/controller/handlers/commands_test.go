package handlers

import (
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
)

func TestParseTicketCode(t *testing.T) {
	tests := []struct {
		text     string
		expected string
	}{
		{"/ticket", ""},
		{"/ticket sht7k2mq9xa", "SHT7K2MQ9XA"},
		{"/ticket   SHT7K2MQ9XA  extra", "SHT7K2MQ9XA"},
		{"/ticket@shuttle_bot SHTAAAA2222", "SHTAAAA2222"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseTicketCode(tt.text), tt.text)
	}
}

func TestIsContact(t *testing.T) {
	assert.False(t, IsContact(&models.Update{}))
	assert.False(t, IsContact(&models.Update{Message: &models.Message{Text: "hi"}}))
	assert.True(t, IsContact(&models.Update{Message: &models.Message{Contact: &models.Contact{PhoneNumber: "+79991234567"}}}))
}
