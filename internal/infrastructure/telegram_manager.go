package infrastructure

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramMessageLimit is the maximum text length Telegram accepts per message.
const telegramMessageLimit = 4096

// TelegramBotManager runs the bot polling loop and sends replies.
type TelegramBotManager struct {
	Bot       *tgbotapi.BotAPI
	stopChan  chan struct{}
	isRunning bool
	mu        sync.Mutex

	// MessageHandler processes every update; set before Start.
	MessageHandler func(update tgbotapi.Update)
}

// NewTelegramBotManager validates token against the Bot API.
func NewTelegramBotManager(token string) (*TelegramBotManager, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return &TelegramBotManager{
		Bot:      bot,
		stopChan: make(chan struct{}),
	}, nil
}

func (m *TelegramBotManager) BotName() string {
	return m.Bot.Self.UserName
}

// Start begins long polling in the background.
func (m *TelegramBotManager) Start() {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = true
	stop := m.stopChan
	m.mu.Unlock()

	go m.startPolling(stop)
}

func (m *TelegramBotManager) startPolling(stop <-chan struct{}) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := m.Bot.GetUpdatesChan(u)

	fmt.Printf("[TG Bot] Started polling (@%s)\n", m.Bot.Self.UserName)

	for {
		select {
		case <-stop:
			m.Bot.StopReceivingUpdates()
			fmt.Printf("[TG Bot] Stopped polling\n")
			m.mu.Lock()
			m.isRunning = false
			m.mu.Unlock()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if m.MessageHandler != nil {
				go m.MessageHandler(update)
			}
		}
	}
}

// Stop ends polling (for graceful shutdown).
func (m *TelegramBotManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isRunning {
		close(m.stopChan)
		m.stopChan = make(chan struct{})
	}
}

// SendMessage sends text to chatID, splitting it when it exceeds the Telegram limit.
func (m *TelegramBotManager) SendMessage(chatID int64, text string) error {
	for _, chunk := range SplitMessage(text, telegramMessageLimit) {
		if _, err := m.Bot.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return err
		}
	}
	return nil
}

// SendWithKeyboard sends text with an inline keyboard attached.
func (m *TelegramBotManager) SendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	_, err := m.Bot.Send(msg)
	return err
}

// AnswerCallback acknowledges an inline keyboard press.
func (m *TelegramBotManager) AnswerCallback(callbackID, text string) error {
	_, err := m.Bot.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

// SplitMessage cuts text into chunks of at most limit bytes, preferring line breaks.
func SplitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
