package storage

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/semmidev/daydump/internal/config"
	"github.com/semmidev/daydump/internal/domain"
)

// Telegram bots cannot send documents above this size.
const telegramMaxFileMB = 50

type TelegramStorage struct {
	bot        *tgbotapi.BotAPI
	chatID     int64
	sendFile   bool
	notifyOnly bool
}

func NewTelegram(cfg *config.UploadTarget) (*TelegramStorage, error) {
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat_id %q: %w", cfg.ChatID, err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramStorage{
		bot:        bot,
		chatID:     chatID,
		sendFile:   cfg.SendFile,
		notifyOnly: cfg.NotifyOnly,
	}, nil
}

// Upload sends the archive as a document, or only a notice when the file is
// too big or file sending is off. Notify-only targets stay quiet here and
// report once per run through Notify.
func (t *TelegramStorage) Upload(ctx context.Context, localPath string, remoteName string) error {
	if t.notifyOnly {
		return nil
	}

	fileInfo, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	fileSizeMB := float64(fileInfo.Size()) / (1024 * 1024)

	if !t.sendFile || fileSizeMB > telegramMaxFileMB {
		message := fmt.Sprintf(
			"✅ Archive written\n\n📁 File: %s\n📊 Size: %.2f MB\n🕐 Time: %s",
			remoteName,
			fileSizeMB,
			fileInfo.ModTime().Format("2006-01-02 15:04:05"),
		)
		if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, message)); err != nil {
			return fmt.Errorf("failed to send telegram notification: %w", err)
		}
		return nil
	}

	file := tgbotapi.NewDocument(t.chatID, tgbotapi.FilePath(localPath))
	file.Caption = fmt.Sprintf("📦 %s (%.2f MB)", remoteName, fileSizeMB)
	if _, err := t.bot.Send(file); err != nil {
		return fmt.Errorf("failed to send telegram file: %w", err)
	}

	return nil
}

func (t *TelegramStorage) List(ctx context.Context) ([]string, error) {
	// Telegram doesn't support listing files
	return []string{}, nil
}

func (t *TelegramStorage) Delete(ctx context.Context, remoteName string) error {
	// Telegram doesn't support deleting files
	return nil
}

func (t *TelegramStorage) GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error) {
	return []string{}, nil
}

// Notify posts a one-message summary of a run.
func (t *TelegramStorage) Notify(ctx context.Context, report *domain.Report) error {
	msg := tgbotapi.NewMessage(t.chatID, SummaryMessage(report))
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram summary: %w", err)
	}
	return nil
}

func SummaryMessage(report *domain.Report) string {
	status := "✅ Backup finished"
	if len(report.Failed) > 0 {
		status = "❌ Backup finished with errors"
	}

	msg := fmt.Sprintf("%s: %s\n\n📦 Written: %d\n⏭ Skipped: %d\n⏱ Duration: %s",
		status,
		report.Database,
		len(report.Written),
		len(report.Skipped),
		report.Duration.Round(time.Second),
	)
	for _, f := range report.Failed {
		msg += "\n⚠️ " + f.Error()
	}
	return msg
}
