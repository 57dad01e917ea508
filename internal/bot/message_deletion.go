package bot

import (
	"context"
	"strings"
	"time"

	"github.com/ad/telegram-contest-bot/internal/domain"

	"github.com/go-telegram/bot"
)

// MessageDeleter is an interface for deleting messages (for testing)
type MessageDeleter interface {
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
}

// deleteMessages attempts to delete multiple messages from a chat.
// "message not found" and "message too old" failures are logged and
// ignored; rate limits trigger one retry after a second. It never returns
// an error so a failed cleanup cannot interrupt a conversation flow.
func deleteMessages(ctx context.Context, b MessageDeleter, logger domain.Logger, chatID int64, messageIDs ...int) {
	for _, messageID := range messageIDs {
		if err := deleteMessageWithRetry(ctx, b, logger, chatID, messageID); err != nil {
			logger.Warn("message deletion failed",
				"chat_id", chatID,
				"message_id", messageID,
				"error", err.Error())
		} else {
			logger.Debug("message deleted",
				"chat_id", chatID,
				"message_id", messageID)
		}
	}
}

func deleteMessageWithRetry(ctx context.Context, b MessageDeleter, logger domain.Logger, chatID int64, messageID int) error {
	_, err := b.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	})

	if err == nil {
		return nil
	}

	if isRateLimitError(err) {
		logger.Info("rate limit hit, retrying after 1 second",
			"chat_id", chatID,
			"message_id", messageID)

		time.Sleep(1 * time.Second)

		_, retryErr := b.DeleteMessage(ctx, &bot.DeleteMessageParams{
			ChatID:    chatID,
			MessageID: messageID,
		})
		return retryErr
	}

	if isMessageNotFoundError(err) {
		logger.Info("message not found (may have been manually deleted)",
			"chat_id", chatID,
			"message_id", messageID)
		return err
	}

	if isMessageTooOldError(err) {
		logger.Info("message too old to delete",
			"chat_id", chatID,
			"message_id", messageID)
		return err
	}

	return err
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "retry after")
}

func isMessageNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "message to delete not found") ||
		strings.Contains(errStr, "message not found") ||
		strings.Contains(errStr, "MESSAGE_ID_INVALID")
}

func isMessageTooOldError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "message can't be deleted") ||
		strings.Contains(errStr, "message is too old") ||
		strings.Contains(errStr, "MESSAGE_DELETE_FORBIDDEN")
}
