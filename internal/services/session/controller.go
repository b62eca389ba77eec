package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/yegorian/legendary-empire/internal/dependencies/clock"
	"github.com/yegorian/legendary-empire/internal/model"
	"github.com/yegorian/legendary-empire/internal/services/admin"
	"github.com/yegorian/legendary-empire/internal/services/membership"
	"github.com/yegorian/legendary-empire/internal/services/worldmap"
	"github.com/yegorian/legendary-empire/internal/storage"
)

// Nickname length bounds, in characters
const (
	nicknameMinLen = 2
	nicknameMaxLen = 15
)

// Config holds the conversation controller's settings
type Config struct {
	// AdminHandle is the username granted access to the admin panel
	AdminHandle string
	// ChannelLink is the public link shown in the subscription prompt
	ChannelLink string
}

// Controller is the conversation state machine: the authoritative source
// of which inputs are valid for a user at any point in their lifecycle.
//
// The transport serializes deliveries per identity, so each session's
// scratch is only ever touched by one in-flight action; sessions for
// different identities are handled concurrently.
type Controller struct {
	storage    storage.Storage
	worldmap   *worldmap.Service
	membership *membership.Service
	admin      *admin.Service
	clock      clock.Clock
	cfg        Config
	logger     *slog.Logger

	mu       sync.Mutex
	sessions map[int64]*session
}

// NewController creates a new session controller
func NewController(
	storage storage.Storage,
	worldmap *worldmap.Service,
	membership *membership.Service,
	admin *admin.Service,
	clock clock.Clock,
	cfg Config,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage:    storage,
		worldmap:   worldmap,
		membership: membership,
		admin:      admin,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
		sessions:   make(map[int64]*session),
	}
}

// session returns the identity's conversation scratch, creating it at
// the given step if absent
func (c *Controller) session(telegramID int64, initial step) *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, ok := c.sessions[telegramID]
	if !ok {
		sess = &session{step: initial}
		c.sessions[telegramID] = sess
	}
	return sess
}

// resumeStep decides where a conversation with no in-memory session
// picks up: registered users land in game, everyone else starts over.
func (c *Controller) resumeStep(ctx context.Context, id Identity) step {
	if _, err := c.storage.GetAccount(ctx, id.TelegramID); err == nil {
		return stepInGame
	}
	return stepAwaitingSubscription
}

// Start handles the restart trigger (/start). Always accepted: a known
// account short-circuits to the welcome-back branch, a new user is asked
// to subscribe.
func (c *Controller) Start(ctx context.Context, id Identity) Reply {
	account, err := c.storage.GetAccount(ctx, id.TelegramID)
	if err == nil {
		sess := c.session(id.TelegramID, stepInGame)
		sess.step = stepInGame

		return Reply{
			Text:    fmt.Sprintf(textWelcomeBack, account.Nickname, account.GameID),
			Buttons: [][]Button{row(Button{Label: labelNext, Action: model.Action{Kind: model.ActionContinue}})},
		}
	}
	if !errors.Is(err, model.ErrAccountNotFound) {
		c.logger.Error("account lookup failed",
			slog.Int64("telegram_id", id.TelegramID),
			slog.String("error", err.Error()),
		)
	}

	sess := c.session(id.TelegramID, stepAwaitingSubscription)
	sess.step = stepAwaitingSubscription

	return Reply{
		Text: fmt.Sprintf(textSubscribePrompt, c.cfg.ChannelLink),
		Buttons: [][]Button{
			row(Button{Label: labelConfirm, Action: model.Action{Kind: model.ActionSubscriptionConfirm}}),
		},
	}
}

// HandleText handles a free-text message. Text is only meaningful while
// collecting a nickname; in every other step it is ignored.
func (c *Controller) HandleText(ctx context.Context, id Identity, text string) Reply {
	sess := c.session(id.TelegramID, c.resumeStep(ctx, id))
	if sess.step != stepAwaitingNickname {
		return Reply{}
	}
	return c.registerNickname(ctx, id, sess, text)
}

// HandleAction handles a callback action token. Malformed tokens are
// swallowed: logged, no mutation, no response.
func (c *Controller) HandleAction(ctx context.Context, id Identity, token string) Reply {
	action, err := model.ParseAction(token)
	if err != nil {
		c.logger.Warn("malformed action token",
			slog.Int64("telegram_id", id.TelegramID),
			slog.String("token", token),
		)
		return Reply{}
	}

	sess := c.session(id.TelegramID, c.resumeStep(ctx, id))

	switch action.Kind {
	case model.ActionSubscriptionConfirm:
		if sess.step != stepAwaitingSubscription {
			return Reply{}
		}
		return c.confirmSubscription(ctx, id, sess)

	case model.ActionContinue:
		if sess.step != stepAwaitingNickname && sess.step != stepInGame {
			return Reply{}
		}
		return c.continueToGame(ctx, id, sess)

	case model.ActionCellClick:
		if sess.step != stepInGame {
			return Reply{}
		}
		return c.clickCell(ctx, id, sess, model.Cell{Row: action.Row, Col: action.Col})

	case model.ActionAdminMenu:
		if sess.step == stepAwaitingSubscription {
			return Reply{}
		}
		return c.adminMenu(id, sess)

	case model.ActionDownloadDB:
		if sess.step != stepAdminMenu {
			return Reply{}
		}
		return c.adminDownload(ctx, id, sess)

	case model.ActionAdminUsers:
		if sess.step != stepAdminMenu {
			return Reply{}
		}
		return c.adminUsers(ctx, sess)

	case model.ActionBack:
		if sess.step != stepAdminMenu && sess.step != stepAdminUsers && sess.step != stepInGame {
			return Reply{}
		}
		return c.backToGame(ctx, id, sess)
	}

	return Reply{}
}

// confirmSubscription re-checks channel membership. Failure keeps the
// user at the gate with no mutation.
func (c *Controller) confirmSubscription(ctx context.Context, id Identity, sess *session) Reply {
	if !c.membership.Check(ctx, id.TelegramID) {
		return Reply{Text: textSubscribeDenied}
	}

	sess.step = stepAwaitingNickname
	return Reply{Text: textNicknamePrompt}
}

// registerNickname validates the chosen name and creates the account
// with its starting kit
func (c *Controller) registerNickname(ctx context.Context, id Identity, sess *session, nickname string) Reply {
	length := utf8.RuneCountInString(nickname)
	if length < nicknameMinLen || length > nicknameMaxLen {
		return Reply{Text: textNicknameInvalid}
	}

	if _, err := c.storage.GetAccount(ctx, id.TelegramID); err == nil {
		sess.step = stepInGame
		return Reply{Text: textAlreadyRegistered}
	}

	now := c.clock.Now()
	account := &model.Account{
		TelegramID:   id.TelegramID,
		Username:     id.Username,
		Nickname:     nickname,
		RegisteredAt: now,
		LastActiveAt: now,
		Subscribed:   true,
		State:        model.StateRegistered,
	}
	ledger := model.NewStartingLedger(0, now)

	if err := c.storage.CreateAccount(ctx, account, ledger); err != nil {
		if errors.Is(err, model.ErrDuplicateAccount) {
			return Reply{Text: textRegistrationRetry}
		}
		c.logger.Error("registration failed",
			slog.Int64("telegram_id", id.TelegramID),
			slog.String("error", err.Error()),
		)
		return Reply{Text: textRegistrationRetry}
	}

	c.logger.Info("player registered",
		slog.Int64("telegram_id", id.TelegramID),
		slog.String("game_id", string(account.GameID)),
		slog.String("nickname", nickname),
	)

	buttons := [][]Button{
		row(Button{Label: labelNext, Action: model.Action{Kind: model.ActionContinue}}),
	}
	if c.isAdmin(id) {
		buttons = append(buttons, row(Button{Label: labelAdmin, Action: model.Action{Kind: model.ActionAdminMenu}}))
	}

	return Reply{
		Text:    fmt.Sprintf(textRegistered, nickname, account.GameID),
		Buttons: buttons,
	}
}

// continueToGame generates and persists a fresh grid and renders it
func (c *Controller) continueToGame(ctx context.Context, id Identity, sess *session) Reply {
	account, err := c.storage.GetAccount(ctx, id.TelegramID)
	if err != nil {
		return Reply{Text: textAccountMissing}
	}

	now := c.clock.Now()
	grid := c.worldmap.Generate(account.ID, now)
	if err := c.storage.AppendGrid(ctx, grid); err != nil {
		c.logger.Error("failed to persist grid",
			slog.Int64("account_id", account.ID),
			slog.String("error", err.Error()),
		)
		return Reply{Text: textRegistrationRetry}
	}
	if err := c.storage.SetSessionState(ctx, id.TelegramID, model.StateInGame, now); err != nil {
		c.logger.Error("failed to update session state",
			slog.Int64("telegram_id", id.TelegramID),
			slog.String("error", err.Error()),
		)
	}

	sess.step = stepInGame
	sess.grid = grid

	return Reply{Text: textMapIntro, Buttons: gridButtons(grid)}
}

// clickCell resolves one cell click against the working grid
func (c *Controller) clickCell(ctx context.Context, id Identity, sess *session, cell model.Cell) Reply {
	account, err := c.storage.GetAccount(ctx, id.TelegramID)
	if err != nil {
		return Reply{Text: textAccountMissing}
	}

	grid, reply := c.workingGrid(ctx, account, sess)
	if grid == nil {
		return reply
	}

	outcome := c.worldmap.Resolve(grid, cell)
	grid.Visit(cell)
	now := c.clock.Now()

	if outcome.Won {
		ended := now
		grid.EndedAt = &ended
		if err := c.storage.UpdateGrid(ctx, grid); err != nil {
			c.logger.Error("failed to persist victory",
				slog.Int64("grid_id", grid.ID),
				slog.String("error", err.Error()),
			)
		}
		if err := c.storage.SetSessionState(ctx, id.TelegramID, model.StateWon, now); err != nil {
			c.logger.Error("failed to update session state",
				slog.Int64("telegram_id", id.TelegramID),
				slog.String("error", err.Error()),
			)
		}
		if err := c.storage.MarkCastleBuilt(ctx, id.TelegramID); err != nil {
			c.logger.Error("failed to mark castle built",
				slog.Int64("telegram_id", id.TelegramID),
				slog.String("error", err.Error()),
			)
		}

		c.logger.Info("castle built",
			slog.Int64("telegram_id", id.TelegramID),
			slog.Int("row", cell.Row),
			slog.Int("col", cell.Col),
		)
		return Reply{Text: outcome.Message}
	}

	// Death: the grid stays playable as-is, only the visited bookkeeping
	// is persisted
	if err := c.storage.UpdateGrid(ctx, grid); err != nil {
		c.logger.Error("failed to persist visited cells",
			slog.Int64("grid_id", grid.ID),
			slog.String("error", err.Error()),
		)
	}

	return Reply{
		Text:    outcome.Message + textRetrySuffix,
		Buttons: gridButtons(grid),
	}
}

// adminMenu opens the admin panel for the configured handle and rejects
// everyone else without changing their state
func (c *Controller) adminMenu(id Identity, sess *session) Reply {
	if !c.isAdmin(id) {
		c.logger.Warn("admin menu denied",
			slog.Int64("telegram_id", id.TelegramID),
			slog.String("username", id.Username),
		)
		return Reply{Text: textPermissionError}
	}

	sess.step = stepAdminMenu
	return Reply{
		Text: textAdminPanel,
		Buttons: [][]Button{
			row(Button{Label: labelDownload, Action: model.Action{Kind: model.ActionDownloadDB}}),
			row(Button{Label: labelUsers, Action: model.Action{Kind: model.ActionAdminUsers}}),
			row(Button{Label: labelBack, Action: model.Action{Kind: model.ActionBack}}),
		},
	}
}

// adminDownload produces the export bundle for transmission
func (c *Controller) adminDownload(ctx context.Context, id Identity, sess *session) Reply {
	if !c.isAdmin(id) {
		return Reply{Text: textPermissionError}
	}

	export, err := c.admin.Export(ctx)
	if err != nil {
		c.logger.Error("export failed",
			slog.Int64("telegram_id", id.TelegramID),
			slog.String("error", err.Error()),
		)
		return Reply{Text: textExportFailed}
	}

	return Reply{
		Text:     textExportDone,
		Document: &Document{Filename: export.Filename, Data: export.Data},
	}
}

// adminUsers shows aggregate usage numbers
func (c *Controller) adminUsers(ctx context.Context, sess *session) Reply {
	stats, err := c.admin.Stats(ctx)
	if err != nil {
		c.logger.Error("stats failed", slog.String("error", err.Error()))
		return Reply{Text: textExportFailed}
	}

	sess.step = stepAdminUsers
	return Reply{
		Text: fmt.Sprintf(textUserStats, stats.TotalPlayers, stats.ActiveToday),
		Buttons: [][]Button{
			row(Button{Label: labelAdminBack, Action: model.Action{Kind: model.ActionAdminMenu}}),
		},
	}
}

// backToGame re-renders the latest grid, reconstructing the working copy
// from storage when the in-memory one was lost
func (c *Controller) backToGame(ctx context.Context, id Identity, sess *session) Reply {
	account, err := c.storage.GetAccount(ctx, id.TelegramID)
	if err != nil {
		return Reply{Text: textAccountMissing}
	}

	grid, reply := c.workingGrid(ctx, account, sess)
	if grid == nil {
		return reply
	}

	sess.step = stepInGame
	return Reply{Text: textMapResume, Buttons: gridButtons(grid)}
}

// workingGrid returns the session's cached grid, falling back to the
// store's latest grid. A nil grid comes with the reply to send instead.
func (c *Controller) workingGrid(ctx context.Context, account *model.Account, sess *session) (*model.TerrainGrid, Reply) {
	if sess.grid != nil {
		return sess.grid, Reply{}
	}

	grid, err := c.storage.LatestGrid(ctx, account.ID)
	if err != nil {
		return nil, Reply{
			Text:    textNoActiveMap,
			Buttons: [][]Button{row(Button{Label: labelNext, Action: model.Action{Kind: model.ActionContinue}})},
		}
	}
	sess.grid = grid
	return grid, Reply{}
}

func (c *Controller) isAdmin(id Identity) bool {
	return c.cfg.AdminHandle != "" && id.Username == c.cfg.AdminHandle
}

// gridButtons renders the grid as the 10x10 clickable cell matrix
func gridButtons(grid *model.TerrainGrid) [][]Button {
	buttons := make([][]Button, model.GridSize)
	for r := 0; r < model.GridSize; r++ {
		buttons[r] = make([]Button, model.GridSize)
		for col := 0; col < model.GridSize; col++ {
			buttons[r][col] = Button{
				Label:  string(grid.Cells[r][col]),
				Action: model.CellAction(r, col),
			}
		}
	}
	return buttons
}
