package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"github.com/akozyrev/gemini-studio-bot/pkg/domain"
	"github.com/akozyrev/gemini-studio-bot/pkg/logger"
)

type client struct {
	token     string
	bot       *tgbotapi.BotAPI
	updatesCh tgbotapi.UpdatesChannel
}

func NewClient(token string) (*client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating bot api instance: %w", err)
	}

	slog.Info("authorized on telegram", "account", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	return &client{
		token:     token,
		bot:       bot,
		updatesCh: bot.GetUpdatesChan(u),
	}, nil
}

func (c *client) GetUpdates() tgbotapi.UpdatesChannel {
	return c.updatesCh
}

func (c *client) SendResponse(ctx context.Context, response *domain.Response) {
	switch {
	case response.Err != nil:
		c.sendError(ctx, response.ChatID, response.Err)
	case response.Video != nil:
		c.sendVideo(ctx, response.ChatID, response.Video)
	case response.Image != nil:
		c.sendImage(ctx, response.ChatID, response.Image)
	case response.Keyboard != nil:
		c.sendKeyboard(ctx, response.ChatID, response.Keyboard)
	default:
		c.sendText(ctx, response.ChatID, response.Text)
	}
}

func (c *client) sendError(ctx context.Context, chatID int64, err error) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+err.Error())

	// Quota and key failures are recoverable by switching to another key,
	// so those get the remedy button attached.
	if domain.IsKeyActionable(err) {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔑 Switch API key", domain.SwitchKeyCallback),
			),
		)
	}

	if _, sendErr := c.bot.Send(msg); sendErr != nil {
		slog.ErrorContext(ctx, "sending error message", logger.Err(sendErr))
	}
}

func (c *client) sendText(ctx context.Context, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, renderHTML(text))
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := c.bot.Send(msg); err != nil {
		slog.WarnContext(ctx, "sending HTML message failed, retrying as plain text", logger.Err(err))

		plain := tgbotapi.NewMessage(chatID, text)
		if _, err := c.bot.Send(plain); err != nil {
			slog.ErrorContext(ctx, "sending plain text message", logger.Err(err))
		}
	}
}

func (c *client) sendImage(ctx context.Context, chatID int64, image *domain.Image) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "image.png", Bytes: image.Data})
	photo.Caption = image.Caption

	if image.PromptID > 0 {
		photo.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔄 Regenerate",
					fmt.Sprintf("%s%d", domain.GenImageCallbackPrefix, image.PromptID)),
			),
		)
	}

	if _, err := c.bot.Send(photo); err != nil {
		slog.ErrorContext(ctx, "sending image", logger.Err(err))
	}
}

func (c *client) sendVideo(ctx context.Context, chatID int64, video *domain.Video) {
	msg := tgbotapi.NewVideo(chatID, tgbotapi.FileBytes{Name: "video.mp4", Bytes: video.Data})

	if _, err := c.bot.Send(msg); err != nil {
		slog.ErrorContext(ctx, "sending video", logger.Err(err))
	}
}

func (c *client) sendKeyboard(ctx context.Context, chatID int64, keyboard *domain.Keyboard) {
	perRow := keyboard.ButtonsPerRow
	if perRow <= 0 {
		perRow = 1
	}

	rows := lo.Map(lo.Chunk(keyboard.Buttons, perRow), func(chunk []domain.KeyboardButton, _ int) []tgbotapi.InlineKeyboardButton {
		return lo.Map(chunk, func(b domain.KeyboardButton, _ int) tgbotapi.InlineKeyboardButton {
			return tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data)
		})
	})

	msg := tgbotapi.NewMessage(chatID, keyboard.Title)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)

	if _, err := c.bot.Send(msg); err != nil {
		slog.ErrorContext(ctx, "sending keyboard", logger.Err(err))
	}
}

func (c *client) AcknowledgeCallback(ctx context.Context, callbackQueryID string) {
	if _, err := c.bot.Request(tgbotapi.NewCallback(callbackQueryID, "")); err != nil {
		slog.ErrorContext(ctx, "acknowledging callback", logger.Err(err))
	}
}

func (c *client) StartTyping(ctx context.Context, chatID int64) {
	if _, err := c.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		slog.ErrorContext(ctx, "sending typing action", logger.Err(err))
	}
}

// DownloadFile fetches an attached file and guesses its MIME type from the
// stored path extension.
func (c *client) DownloadFile(ctx context.Context, fileID string) ([]byte, string, error) {
	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, "", fmt.Errorf("getting file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(c.token), nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.bot.Client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("executing request: %w", err)
	}
	defer func(body io.ReadCloser) {
		if closeErr := body.Close(); closeErr != nil {
			slog.ErrorContext(ctx, "closing body", logger.Err(closeErr))
		}
	}(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading file data: %w", err)
	}

	mimeType := "image/jpeg"
	if strings.EqualFold(path.Ext(file.FilePath), ".png") {
		mimeType = "image/png"
	}

	return data, mimeType, nil
}
