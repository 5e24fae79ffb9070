package model

import "time"

// Subscriber связывает телефон гостя с чатом Telegram
type Subscriber struct {
	ID        int64     `json:"id"`
	Phone     string    `json:"phone"`
	ChatID    int64     `json:"chat_id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
