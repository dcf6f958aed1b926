package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	gobot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier posts alerts to one chat through the Bot API.
// The bot authorises itself (getMe) on the first Send, so building a
// notifier never touches the network.
type TelegramNotifier struct {
	token    string
	chatID   string // numeric chat ID or "@channel"
	endpoint string // gobot.APIEndpoint format: token, then method
	client   *http.Client

	mu  sync.Mutex
	bot *gobot.BotAPI
}

// NewTelegramNotifier creates a Telegram notifier.
// botToken: Bot API token from @BotFather
// chatID: target chat/group ID, or "@channel" username
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:    botToken,
		chatID:   chatID,
		endpoint: gobot.APIEndpoint,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	bot, err := t.connect()
	if err != nil {
		return err
	}
	if _, err := bot.Send(t.message(formatTelegram(alert))); err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	log.Printf("[telegram] sent alert to %s: %s", t.chatID, alert.Title)
	return nil
}

func (t *TelegramNotifier) connect() (*gobot.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bot != nil {
		return t.bot, nil
	}
	bot, err := gobot.NewBotAPIWithClient(t.token, t.endpoint, t.client)
	if err != nil {
		return nil, fmt.Errorf("telegram: authorise bot: %w", err)
	}
	log.Printf("[telegram] authorised as @%s", bot.Self.UserName)
	t.bot = bot
	return bot, nil
}

func (t *TelegramNotifier) message(text string) gobot.MessageConfig {
	var msg gobot.MessageConfig
	if id, err := strconv.ParseInt(t.chatID, 10, 64); err == nil {
		msg = gobot.NewMessage(id, text)
	} else {
		msg = gobot.NewMessageToChannel(t.chatID, text)
	}
	msg.ParseMode = gobot.ModeMarkdownV2
	msg.DisableWebPagePreview = true
	return msg
}

// formatTelegram renders an alert as MarkdownV2: level and bold title, the
// message, the fields as an aligned code block, then the run ID.
func formatTelegram(a Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n\n%s", levelEmoji(a.Level), escape(a.Title), escape(a.Message))

	if len(a.Fields) > 0 {
		width := 0
		for _, f := range a.Fields {
			if len(f.Name) > width {
				width = len(f.Name)
			}
		}
		b.WriteString("\n\n```\n")
		for _, f := range a.Fields {
			b.WriteString(escapeCode(fmt.Sprintf("%-*s  %s", width, f.Name, f.Value)))
			b.WriteByte('\n')
		}
		b.WriteString("```")
	}

	if a.RunID != "" {
		b.WriteString("\n\nrun `" + escapeCode(a.RunID) + "`")
	}
	return b.String()
}

func levelEmoji(l AlertLevel) string {
	switch l {
	case AlertWarning:
		return "⚠️"
	case AlertCritical:
		return "🚨"
	}
	return "ℹ️"
}

func escape(s string) string { return gobot.EscapeText(gobot.ModeMarkdownV2, s) }

// Inside code entities only ` and \ are special.
var codeEscaper = strings.NewReplacer(`\`, `\\`, "`", "\\`")

func escapeCode(s string) string { return codeEscaper.Replace(s) }
