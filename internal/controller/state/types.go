package state

// ChatState состояние диалога в чате с ботом
type ChatState string

const (
	StateNone            ChatState = ""
	StateAwaitingContact ChatState = "awaiting_contact"     // ждём кнопку "поделиться контактом"
	StateAwaitingCode    ChatState = "awaiting_ticket_code" // ждём код бронирования после /ticket
)
