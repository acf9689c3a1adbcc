package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/akozyrev/gemini-studio-bot/pkg/domain"
)

type ChatService interface {
	Converse(ctx context.Context, chatID int64, prompt string, reasoning bool)
	StartNewConversation(ctx context.Context, chatID int64)
	SendHistory(ctx context.Context, chatID int64)
	DeleteConversation(ctx context.Context, chatID int64, callbackData string)
}

type ImageService interface {
	GenerateImage(ctx context.Context, chatID int64, prompt, fromUser string, aspect domain.AspectRatio)
	RegenerateImage(ctx context.Context, chatID int64, callbackData string)
	EditImage(ctx context.Context, chatID int64, image []byte, mimeType, prompt string)
}

type VideoService interface {
	GenerateVideo(ctx context.Context, chatID int64, prompt string, sourceImage *domain.ImageArtifact, aspect domain.AspectRatio)
}

type KeySwitcher interface {
	Rotate() int
	Len() int
}

type FileDownloader interface {
	DownloadFile(ctx context.Context, fileID string) ([]byte, string, error)
}

const greeting = `👋 Hi! I'm a Gemini studio bot. Here's what I can do:

🖼 <b>/image</b> prompt — generate an image
🎬 <b>/video</b> prompt — generate a short video
🧠 <b>/think</b> prompt — answer with deep reasoning
🆕 <b>/new</b> — start a new chat
🗃 <b>/history</b> — list stored conversations

✏️ Just ask me a question and I'll answer.
📷 Send a picture with a caption and I'll edit it as instructed; caption it with /video to animate it.

Add <code>--ar 16:9</code>, <code>--ar 9:16</code> or <code>--ar 1:1</code> to any prompt to pick the aspect ratio.`

type handler struct {
	chatService  ChatService
	imageService ImageService
	videoService VideoService
	keys         KeySwitcher
	downloader   FileDownloader
	responseCh   chan<- domain.Response
}

func NewHandler(
	chatService ChatService,
	imageService ImageService,
	videoService VideoService,
	keys KeySwitcher,
	downloader FileDownloader,
	responseCh chan<- domain.Response,
) *handler {
	return &handler{
		chatService:  chatService,
		imageService: imageService,
		videoService: videoService,
		keys:         keys,
		downloader:   downloader,
		responseCh:   responseCh,
	}
}

func (h *handler) HandleUpdate(ctx context.Context, update *tgbotapi.Update) {
	if update.CallbackQuery != nil {
		h.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		h.handleMessage(ctx, update.Message)
	}
}

func (h *handler) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID
	data := query.Data

	switch {
	case strings.HasPrefix(data, domain.GenImageCallbackPrefix):
		h.imageService.RegenerateImage(ctx, chatID, data)
	case strings.HasPrefix(data, domain.DelChatCallbackPrefix):
		h.chatService.DeleteConversation(ctx, chatID, data)
	case data == domain.SwitchKeyCallback:
		h.switchKey(chatID)
	default:
		slog.WarnContext(ctx, "Unknown callback", "data", data)
	}
}

func (h *handler) switchKey(chatID int64) {
	position := h.keys.Rotate()
	if position == 0 {
		h.responseCh <- domain.Response{ChatID: chatID, Text: "⚠️ No usable API keys are configured."}
		return
	}

	h.responseCh <- domain.Response{
		ChatID: chatID,
		Text:   fmt.Sprintf("🔑 Switched to API key %d of %d. Retry your request.", position, h.keys.Len()),
	}
}

func (h *handler) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if len(message.Photo) > 0 {
		h.handlePhoto(ctx, message)
		return
	}

	text := strings.TrimSpace(message.Text)

	switch {
	case text == "/start":
		h.responseCh <- domain.Response{ChatID: chatID, Text: greeting}
	case text == "/new":
		h.chatService.StartNewConversation(ctx, chatID)
	case text == "/history":
		h.chatService.SendHistory(ctx, chatID)
	case strings.HasPrefix(text, "/image"):
		prompt, aspect := extractAspectRatio(commandArgument(text, "/image"), domain.AspectRatioSquare)
		h.imageService.GenerateImage(ctx, chatID, prompt, userName(message), aspect)
	case strings.HasPrefix(text, "/video"):
		prompt, aspect := extractAspectRatio(commandArgument(text, "/video"), domain.AspectRatioLandscape)
		h.videoService.GenerateVideo(ctx, chatID, prompt, nil, aspect)
	case strings.HasPrefix(text, "/think"):
		h.chatService.Converse(ctx, chatID, commandArgument(text, "/think"), true)
	case text != "":
		h.chatService.Converse(ctx, chatID, text, false)
	}
}

func (h *handler) handlePhoto(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	caption := strings.TrimSpace(message.Caption)

	if caption == "" {
		h.responseCh <- domain.Response{
			ChatID: chatID,
			Text:   "✏️ Add a caption describing what to do with the picture.",
		}
		return
	}

	// The last entry is the largest size telegram offers.
	fileID := message.Photo[len(message.Photo)-1].FileID

	data, mimeType, err := h.downloader.DownloadFile(ctx, fileID)
	if err != nil {
		h.responseCh <- domain.Response{ChatID: chatID, Err: fmt.Errorf("downloading photo: %w", err)}
		return
	}

	if strings.HasPrefix(caption, "/video") {
		prompt, aspect := extractAspectRatio(commandArgument(caption, "/video"), domain.AspectRatioLandscape)
		source := &domain.ImageArtifact{Data: data, MimeType: mimeType}
		h.videoService.GenerateVideo(ctx, chatID, prompt, source, aspect)
		return
	}

	h.imageService.EditImage(ctx, chatID, data, mimeType, caption)
}

func commandArgument(text, command string) string {
	return strings.TrimSpace(strings.TrimPrefix(text, command))
}

// extractAspectRatio pulls a trailing "--ar W:H" flag out of the prompt.
// Unsupported values are left in place so the user sees what was ignored.
func extractAspectRatio(prompt string, fallback domain.AspectRatio) (string, domain.AspectRatio) {
	supported := map[string]domain.AspectRatio{
		"1:1":  domain.AspectRatioSquare,
		"16:9": domain.AspectRatioLandscape,
		"9:16": domain.AspectRatioPortrait,
	}

	fields := strings.Fields(prompt)
	for i := 0; i < len(fields)-1; i++ {
		if fields[i] != "--ar" {
			continue
		}
		aspect, ok := supported[fields[i+1]]
		if !ok {
			continue
		}

		rest := append(fields[:i:i], fields[i+2:]...)
		return strings.Join(rest, " "), aspect
	}

	return prompt, fallback
}

func userName(message *tgbotapi.Message) string {
	if message.From == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s", message.From.FirstName, message.From.LastName))
}
