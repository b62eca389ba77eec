package telegram

import (
	"context"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yegorian/legendary-empire/internal/services/session"
)

// Config holds the long-poll transport's settings
type Config struct {
	// PollTimeout is the long-poll timeout in seconds
	PollTimeout int
	// LaneBuffer bounds how many updates may queue per chat
	LaneBuffer int
}

// DefaultConfig returns the default transport configuration
func DefaultConfig() Config {
	return Config{
		PollTimeout: 30,
		LaneBuffer:  16,
	}
}

// Bot drives the Telegram long-poll loop and hands each update to the
// conversation controller.
//
// Updates for the same chat are handled in arrival order on a dedicated
// lane; different chats proceed concurrently. This is the serialization
// the controller's per-session scratch relies on.
type Bot struct {
	api        *tgbotapi.BotAPI
	controller *session.Controller
	cfg        Config
	logger     *slog.Logger

	mu    sync.Mutex
	lanes map[int64]chan tgbotapi.Update
	wg    sync.WaitGroup
}

// NewBot creates the transport around an authorized API client
func NewBot(api *tgbotapi.BotAPI, controller *session.Controller, cfg Config, logger *slog.Logger) *Bot {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultConfig().PollTimeout
	}
	if cfg.LaneBuffer <= 0 {
		cfg.LaneBuffer = DefaultConfig().LaneBuffer
	}
	return &Bot{
		api:        api,
		controller: controller,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run polls for updates until the context is canceled, then drains the
// per-chat lanes before returning.
func (b *Bot) Run(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.cfg.PollTimeout
	updates := b.api.GetUpdatesChan(updateConfig)

	b.mu.Lock()
	b.lanes = make(map[int64]chan tgbotapi.Update)
	b.mu.Unlock()

	b.logger.Info("bot started",
		slog.String("username", b.api.Self.UserName),
		slog.Int("poll_timeout", b.cfg.PollTimeout),
	)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.closeLanes()
			b.wg.Wait()
			b.logger.Info("bot stopped")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				b.closeLanes()
				b.wg.Wait()
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

// dispatch routes one update onto its chat's lane, starting the lane's
// worker on first use
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	chatID, ok := updateChatID(update)
	if !ok {
		return
	}

	b.mu.Lock()
	lane, exists := b.lanes[chatID]
	if !exists {
		lane = make(chan tgbotapi.Update, b.cfg.LaneBuffer)
		b.lanes[chatID] = lane
		b.wg.Add(1)
		go b.runLane(ctx, chatID, lane)
	}
	b.mu.Unlock()

	select {
	case lane <- update:
	default:
		b.logger.Warn("dropping update, lane full", slog.Int64("chat_id", chatID))
	}
}

func (b *Bot) runLane(ctx context.Context, chatID int64, lane chan tgbotapi.Update) {
	defer b.wg.Done()
	for update := range lane {
		b.handle(ctx, chatID, update)
	}
}

func (b *Bot) closeLanes() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, lane := range b.lanes {
		close(lane)
	}
	b.lanes = make(map[int64]chan tgbotapi.Update)
}

func updateChatID(update tgbotapi.Update) (int64, bool) {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID, true
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.Message.Chat.ID, true
	default:
		return 0, false
	}
}

func (b *Bot) handle(ctx context.Context, chatID int64, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleMessage(ctx, chatID, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, chatID, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, chatID int64, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	id := session.Identity{TelegramID: msg.From.ID, Username: msg.From.UserName}

	var reply session.Reply
	if msg.IsCommand() {
		if msg.Command() != "start" {
			return
		}
		reply = b.controller.Start(ctx, id)
	} else {
		reply = b.controller.HandleText(ctx, id, msg.Text)
	}

	b.send(chatID, reply)
}

func (b *Bot) handleCallback(ctx context.Context, chatID int64, query *tgbotapi.CallbackQuery) {
	// Acknowledge first so the client stops its spinner even when the
	// action is swallowed
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Warn("failed to answer callback",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
	if query.From == nil {
		return
	}

	id := session.Identity{TelegramID: query.From.ID, Username: query.From.UserName}
	reply := b.controller.HandleAction(ctx, id, query.Data)
	if reply.IsZero() {
		return
	}

	// Edit the originating message in place where possible; document
	// replies always go out as new messages
	if reply.Document == nil && query.Message != nil {
		b.edit(chatID, query.Message.MessageID, reply)
		return
	}
	b.send(chatID, reply)
}

func (b *Bot) send(chatID int64, reply session.Reply) {
	if reply.IsZero() {
		return
	}

	if reply.Text != "" {
		msg := tgbotapi.NewMessage(chatID, reply.Text)
		if len(reply.Buttons) > 0 {
			msg.ReplyMarkup = keyboard(reply.Buttons)
		}
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Error("failed to send message",
				slog.Int64("chat_id", chatID),
				slog.String("error", err.Error()),
			)
		}
	}

	if reply.Document != nil {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
			Name:  reply.Document.Filename,
			Bytes: reply.Document.Data,
		})
		if _, err := b.api.Send(doc); err != nil {
			b.logger.Error("failed to send document",
				slog.Int64("chat_id", chatID),
				slog.String("filename", reply.Document.Filename),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (b *Bot) edit(chatID int64, messageID int, reply session.Reply) {
	var edit tgbotapi.Chattable
	if len(reply.Buttons) > 0 {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, reply.Text, keyboard(reply.Buttons))
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, reply.Text)
	}

	if _, err := b.api.Send(edit); err != nil {
		// Identical content makes Telegram reject the edit; fall back to
		// a fresh message so the user still sees a response
		b.logger.Warn("edit failed, sending new message",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
		b.send(chatID, reply)
	}
}
