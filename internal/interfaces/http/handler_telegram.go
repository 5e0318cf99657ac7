package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"llamachat/internal/entities"
	"llamachat/internal/infrastructure"
	"llamachat/internal/usecases"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/skip2/go-qrcode"
)

// BotMessenger is the outbound side of the Telegram bot.
type BotMessenger interface {
	BotName() string
	SendMessage(chatID int64, text string) error
	SendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error
	AnswerCallback(callbackID, text string) error
}

const (
	replyNotLinked = "👋 This chat is not linked to an account yet.\n\n" +
		"Open the web app, request a Telegram link from your profile and send /start <code> here."
	replyHelp = "Send any message to chat with the model.\n\n" +
		"/new - start a new chat\n/models - choose a model\n/help - show this message"
	replyBusy = "⏳ Still working on your previous message, please wait."
)

// TelegramHandler links Telegram chats to accounts and relays chat messages.
type TelegramHandler struct {
	bot     BotMessenger
	linker  *usecases.TelegramLinker
	chat    *usecases.ChatService
	tracker *infrastructure.ChatTracker
}

func NewTelegramHandler(bot BotMessenger, linker *usecases.TelegramLinker, chat *usecases.ChatService, tracker *infrastructure.ChatTracker) *TelegramHandler {
	return &TelegramHandler{
		bot:     bot,
		linker:  linker,
		chat:    chat,
		tracker: tracker,
	}
}

// RegisterRoutes registers Telegram management routes
func (h *TelegramHandler) RegisterRoutes(api *gin.RouterGroup) {
	tg := api.Group("/telegram")
	{
		tg.GET("/status", h.GetStatus)
		tg.GET("/link", h.GetLink)
		tg.POST("/unlink", h.Unlink)
	}
}

// GetStatus reports the bot name and whether the caller has linked a chat
func (h *TelegramHandler) GetStatus(c *gin.Context) {
	user := currentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"bot_name": "@" + h.bot.BotName(),
		"linked":   user.TelegramChatID != nil,
	})
}

// GetLink issues a one-time link code, as JSON or as a QR code PNG (?format=png)
func (h *TelegramHandler) GetLink(c *gin.Context) {
	user := currentUser(c)
	code, expires := h.linker.IssueCode(user.ID)
	deepLink := fmt.Sprintf("https://t.me/%s?start=%s", h.bot.BotName(), code)

	if c.Query("format") == "png" {
		png, err := qrcode.Encode(deepLink, qrcode.Medium, 256)
		if err != nil {
			c.String(http.StatusInternalServerError, "Failed to generate QR code")
			return
		}
		c.Data(http.StatusOK, "image/png", png)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":       code,
		"link":       deepLink,
		"command":    "/start " + code,
		"expires_at": expires,
	})
}

func (h *TelegramHandler) Unlink(c *gin.Context) {
	user := currentUser(c)
	if user.TelegramChatID != nil {
		h.tracker.Forget(*user.TelegramChatID)
	}
	if err := h.linker.Unlink(c.Request.Context(), user.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unlinked"})
}

// HandleUpdate is the bot's MessageHandler.
func (h *TelegramHandler) HandleUpdate(update tgbotapi.Update) {
	ctx := context.Background()
	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Chat != nil:
		h.handleMessage(ctx, update.Message)
	}
}

func (h *TelegramHandler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() && msg.Command() == "start" {
		h.reply(chatID, h.start(ctx, chatID, msg.CommandArguments()))
		return
	}

	user, err := h.linker.UserForChat(ctx, chatID)
	if err != nil {
		log.Printf("[TG Bot] lookup chat %d: %v", chatID, err)
		h.reply(chatID, "Something went wrong, please try again later.")
		return
	}
	if user == nil {
		h.reply(chatID, replyNotLinked)
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "new":
			h.tracker.GetOrCreate(chatID).Reset()
			h.reply(chatID, "🆕 Started a new chat.")
		case "models":
			h.sendModels(ctx, chatID)
		case "help":
			h.reply(chatID, replyHelp)
		default:
			h.reply(chatID, "Unknown command.\n\n"+replyHelp)
		}
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	h.relay(ctx, chatID, user, text)
}

// start binds the chat when a code is given, otherwise greets.
func (h *TelegramHandler) start(ctx context.Context, chatID int64, code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		user, err := h.linker.UserForChat(ctx, chatID)
		if err == nil && user != nil {
			return fmt.Sprintf("👋 Welcome back, %s!\n\n%s", user.Name, replyHelp)
		}
		return replyNotLinked
	}

	user, err := h.linker.Redeem(ctx, code, chatID)
	if err != nil {
		if errors.Is(err, usecases.ErrInvalidLinkCode) {
			return "❌ " + err.Error() + ". Request a new link from the web app."
		}
		log.Printf("[TG Bot] link chat %d: %v", chatID, err)
		return "Something went wrong, please try again later."
	}
	h.tracker.Forget(chatID)
	log.Printf("[TG Bot] chat %d linked to user %d", chatID, user.ID)
	return fmt.Sprintf("✅ Linked to %s.\n\n%s", user.Username, replyHelp)
}

// relay runs one chat exchange on the chat's tracked session.
func (h *TelegramHandler) relay(ctx context.Context, chatID int64, user *entities.User, text string) {
	state := h.tracker.GetOrCreate(chatID)
	if !h.tracker.TryBegin(state) {
		h.reply(chatID, replyBusy)
		return
	}
	defer state.Finish()

	sessionID, model := state.Session()
	req := usecases.ChatRequest{Prompt: text, Model: model}
	if sessionID != 0 {
		req.SessionID = &sessionID
	}

	result, err := h.chat.Chat(ctx, user.ID, req)
	if errors.Is(err, usecases.ErrInvalidSession) && req.SessionID != nil {
		// the tracked session was deleted from the web app
		state.Reset()
		req.SessionID = nil
		result, err = h.chat.Chat(ctx, user.ID, req)
	}
	if err != nil {
		h.reply(chatID, chatErrorText(err))
		return
	}

	state.SetSession(result.SessionID)
	reply := result.Reply
	if strings.TrimSpace(reply) == "" {
		reply = "(empty reply)"
	}
	if len(reply) > 4000 {
		h.reply(chatID, reply)
		return
	}
	if err := h.bot.SendWithKeyboard(chatID, reply, CreateFollowUpMenu()); err != nil {
		log.Printf("[TG Bot] send to chat %d: %v", chatID, err)
	}
}

func chatErrorText(err error) string {
	var limitErr *usecases.LimitError
	switch {
	case errors.As(err, &limitErr):
		return "⚠️ " + err.Error() + ". Send /new to start a new chat."
	case errors.Is(err, usecases.ErrGateway), usecases.IsValidation(err):
		return "⚠️ " + err.Error()
	default:
		log.Printf("[TG Bot] chat exchange: %v", err)
		return "Something went wrong, please try again later."
	}
}

func (h *TelegramHandler) sendModels(ctx context.Context, chatID int64) {
	keyboard, ok := CreateModelKeyboard(h.chat.Models(ctx))
	if !ok {
		h.reply(chatID, entities.NoModelsAvailable)
		return
	}
	if err := h.bot.SendWithKeyboard(chatID, "🤖 Choose a model:", keyboard); err != nil {
		log.Printf("[TG Bot] send models to chat %d: %v", chatID, err)
	}
}

func (h *TelegramHandler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	user, err := h.linker.UserForChat(ctx, chatID)
	if err != nil || user == nil {
		h.answer(cb.ID, "Link this chat first")
		return
	}

	state := h.tracker.GetOrCreate(chatID)
	switch {
	case cb.Data == callbackNewChat:
		state.Reset()
		h.answer(cb.ID, "")
		h.reply(chatID, "🆕 Started a new chat.")
	case cb.Data == callbackModels:
		h.answer(cb.ID, "")
		h.sendModels(ctx, chatID)
	case strings.HasPrefix(cb.Data, callbackModelPrefix):
		model := strings.TrimPrefix(cb.Data, callbackModelPrefix)
		state.SetModel(model)
		h.answer(cb.ID, "Model set to "+model)
	default:
		h.answer(cb.ID, "")
	}
}

func (h *TelegramHandler) reply(chatID int64, text string) {
	if err := h.bot.SendMessage(chatID, text); err != nil {
		log.Printf("[TG Bot] send to chat %d: %v", chatID, err)
	}
}

func (h *TelegramHandler) answer(callbackID, text string) {
	if err := h.bot.AnswerCallback(callbackID, text); err != nil {
		log.Printf("[TG Bot] answer callback: %v", err)
	}
}
