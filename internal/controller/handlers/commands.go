package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/Freeeeeet/shuttle_booking/internal/controller/state"
	"github.com/Freeeeeet/shuttle_booking/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const helpText = "🚐 Shuttle tickets bot\n\n" +
	"/start - link your phone number to receive tickets here\n" +
	"/ticket CODE - send the ticket for a booking again\n" +
	"/help - show this message"

func contactKeyboard() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: "📱 Share phone number", RequestContact: true}},
		},
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
}

// HandleStart просит гостя поделиться номером телефона
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	h.stateManager.Set(chatID, state.StateAwaitingContact)

	h.sendText(ctx, b, chatID,
		"👋 Welcome! Share the phone number you used for the shuttle booking and your tickets will arrive in this chat.",
		contactKeyboard(),
	)
}

// HandleHelp выводит список команд
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.sendText(ctx, b, update.Message.Chat.ID, helpText, nil)
}

// HandleContact привязывает присланный контакт к чату.
// Принимается только собственный контакт отправителя.
func (h *Handlers) HandleContact(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.Contact == nil || msg.From == nil {
		return
	}
	chatID := msg.Chat.ID

	if msg.Contact.UserID != msg.From.ID {
		h.sendError(ctx, b, chatID, "Please share your own phone number using the button below.")
		return
	}

	subscriber, err := h.subscriberService.Link(ctx, msg.Contact.PhoneNumber, chatID, msg.From.Username, msg.From.FirstName)
	if err != nil {
		if service.IsValidation(err) {
			h.sendError(ctx, b, chatID, "This phone number does not look valid.")
			return
		}
		h.logger.Error("Failed to link phone", zap.Error(err), zap.Int64("chat_id", chatID))
		h.sendError(ctx, b, chatID, "Something went wrong. Please try again later.")
		return
	}

	h.stateManager.Set(chatID, state.StateNone)
	h.sendText(ctx, b, chatID,
		"✅ Phone +"+subscriber.Phone+" is linked. Tickets for your shuttle bookings will be sent here.",
		&models.ReplyKeyboardRemove{RemoveKeyboard: true},
	)
}

// HandleTicket переотправляет билет по коду бронирования
func (h *Handlers) HandleTicket(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	code := ParseTicketCode(update.Message.Text)
	if code == "" {
		h.stateManager.Set(chatID, state.StateAwaitingCode)
		h.sendText(ctx, b, chatID, "🎫 Send me your booking code, for example SHT7K2MQ9XA.", nil)
		return
	}

	h.resendTicket(ctx, b, chatID, code)
}

// HandleTextMessage обрабатывает текст в рамках текущего диалога
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || strings.HasPrefix(update.Message.Text, "/") {
		return
	}
	chatID := update.Message.Chat.ID

	switch st := h.stateManager.Take(chatID); st {
	case state.StateAwaitingCode:
		h.resendTicket(ctx, b, chatID, strings.ToUpper(strings.TrimSpace(update.Message.Text)))
	case state.StateAwaitingContact:
		h.stateManager.Set(chatID, st)
		h.sendText(ctx, b, chatID, "Please use the button below to share your phone number.", contactKeyboard())
	default:
		h.sendText(ctx, b, chatID, helpText, nil)
	}
}

func (h *Handlers) resendTicket(ctx context.Context, b *bot.Bot, chatID int64, code string) {
	booking, err := h.reservationService.GetByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, service.ErrBookingNotFound) {
			h.logger.Error("Failed to get booking", zap.Error(err), zap.String("code", code))
			h.sendError(ctx, b, chatID, "Something went wrong. Please try again later.")
			return
		}
		h.sendError(ctx, b, chatID, "Booking "+code+" was not found.")
		return
	}

	// Билет отдаётся только в чат, к которому привязан телефон бронирования
	owns, err := h.subscriberService.OwnsPhone(ctx, booking.Phone, chatID)
	if err != nil {
		h.logger.Error("Failed to check phone owner", zap.Error(err), zap.Int64("chat_id", chatID))
		h.sendError(ctx, b, chatID, "Something went wrong. Please try again later.")
		return
	}
	if !owns {
		h.sendError(ctx, b, chatID, "Booking "+code+" was not found.")
		return
	}

	updated, err := h.queue.Resend(ctx, booking.ID)
	switch {
	case errors.Is(err, service.ErrBookingCancelled):
		h.sendError(ctx, b, chatID, "Booking "+code+" is cancelled.")
	case err != nil:
		h.logger.Error("Failed to resend ticket", zap.Error(err), zap.Int64("booking_id", booking.ID))
		h.sendError(ctx, b, chatID, "Could not send the ticket. Please try again later.")
	case !updated.NotifySent:
		h.sendError(ctx, b, chatID, "Could not send the ticket. Please try again later.")
	}
}

// ParseTicketCode извлекает код из команды вида "/ticket SHT7K2MQ9XA"
func ParseTicketCode(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ""
	}
	return strings.ToUpper(fields[1])
}
