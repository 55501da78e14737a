package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// TelegramService handles sending notifications to Telegram.
type TelegramService struct {
	botToken    string
	adminChatID string
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to the specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		log.Println("[Telegram] Bot token not configured")
		return nil
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)

	msg := telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[Telegram] Failed to send message: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Telegram] Unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(text string) error {
	if s.adminChatID == "" {
		log.Println("[Telegram] Admin chat ID not configured")
		return nil
	}
	return s.SendMessage(s.adminChatID, text)
}

// NotifyRedemption reports a successful coupon redemption to the
// admin chat.
func (s *TelegramService) NotifyRedemption(code, storeName string, amount int64, todayCount int64) error {
	text := fmt.Sprintf(
		"💳 <b>쿠폰 사용</b>\nCoupon <code>%s</code> redeemed at %s\nAmount: %d KRW\nToday at this store: %d",
		code, storeName, amount, todayCount,
	)
	return s.SendToAdmin(text)
}

// NotifyDraw reports a completed raffle draw to the admin chat.
func (s *TelegramService) NotifyDraw(entryCount int64, winnerCount int) error {
	text := fmt.Sprintf(
		"🎉 <b>경품 추첨 완료</b>\nRaffle draw finished: %d winners selected out of %d entries",
		winnerCount, entryCount,
	)
	return s.SendToAdmin(text)
}
