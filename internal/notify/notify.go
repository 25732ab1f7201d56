package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ethereum/go-ethereum/common"

	"github.com/meltingclock/autoreq_v1/internal/helpers"
	"github.com/meltingclock/autoreq_v1/internal/registry"
	"github.com/meltingclock/autoreq_v1/internal/telemetry"
)

// Notifier receives request lifecycle outcomes. Removal events carry
// only the queue id; the hash is known from the matching Queued card.
type Notifier interface {
	RequestQueued(id uint64, hash common.Hash)
	RequestExecuted(id uint64)
	RequestCancelled(id uint64)
	Alert(text string)
}

// LogNotifier writes outcomes to the process log. Used when telegram
// is not configured.
type LogNotifier struct{}

func (LogNotifier) RequestQueued(id uint64, hash common.Hash) {
	telemetry.Infof("[notify] queued id=%d hash=%s", id, hash.Hex())
}

func (LogNotifier) RequestExecuted(id uint64) {
	telemetry.Infof("[notify] executed id=%d", id)
}

func (LogNotifier) RequestCancelled(id uint64) {
	telemetry.Infof("[notify] cancelled id=%d", id)
}

func (LogNotifier) Alert(text string) {
	telemetry.Warnf("[notify] %s", text)
}

// TelegramNotifier pushes outcome cards to a single allowed chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is empty")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID is not set")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

func (t *TelegramNotifier) reply(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := t.bot.Send(msg); err != nil {
		telemetry.Warnf("[notify] telegram send: %v", err)
	}
}

func (t *TelegramNotifier) RequestQueued(id uint64, hash common.Hash) {
	t.reply(fmt.Sprintf("📥 *Request queued*\nid: `%d`\nhash: `%s`", id, helpers.FormatTxHash(hash)))
}

func (t *TelegramNotifier) RequestExecuted(id uint64) {
	t.reply(fmt.Sprintf("✅ *Request executed*\nid: `%d`", id))
}

func (t *TelegramNotifier) RequestCancelled(id uint64) {
	t.reply(fmt.Sprintf("↩️ *Request cancelled*\nid: `%d`", id))
}

func (t *TelegramNotifier) Alert(text string) {
	t.reply("⚠️ " + text)
}

// Sink adapts a Notifier to the registry event stream.
func Sink(n Notifier) registry.SinkFunc {
	return func(ev registry.Event) {
		switch e := ev.(type) {
		case registry.HashedReqAdded:
			hash, err := registry.HashReq(e.Req)
			if err != nil {
				n.Alert(fmt.Sprintf("unhashable request id=%d: %v", e.ID, err))
				return
			}
			n.RequestQueued(e.ID, hash)
		case registry.HashedReqRemoved:
			if e.WasExecuted {
				n.RequestExecuted(e.ID)
			} else {
				n.RequestCancelled(e.ID)
			}
		case registry.HashedReqUnveriAdded:
			n.RequestQueued(e.ID, e.Hash)
		case registry.HashedReqUnveriRemoved:
			if e.WasExecuted {
				n.RequestExecuted(e.ID)
			} else {
				n.RequestCancelled(e.ID)
			}
		}
	}
}
