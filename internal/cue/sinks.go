package cue

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/banshee-data/plank.report/internal/units"
)

// LogSink writes events to a zap logger.
type LogSink struct {
	Logger *zap.Logger
}

func (LogSink) Name() string { return "log" }

func (s LogSink) Notify(_ context.Context, ev Event) error {
	l := s.Logger
	if l == nil {
		l = zap.L()
	}
	fields := []zap.Field{
		zap.String("session", ev.SessionID),
		zap.Duration("duration", ev.Duration),
		zap.String("formatted", units.FormatDuration(ev.Duration)),
	}
	switch ev.Kind {
	case KindEnter, KindExit:
		l.Info("hold "+ev.Kind.String(), append(fields, zap.Float64("confidence", ev.Confidence))...)
	case KindSummary:
		if sum := ev.Summary; sum != nil {
			fields = append(fields,
				zap.Time("start", sum.Start),
				zap.Time("end", sum.End),
				zap.Int("frames_seen", sum.FramesSeen),
				zap.Int("frames_meeting", sum.FramesMeeting),
				zap.Float64("mean_confidence", sum.MeanConfidence),
				zap.Float64("peak_confidence", sum.PeakConfidence))
		}
		l.Info("session summary", fields...)
	}
	return nil
}

// CommandSender is the part of a serial mux a SerialSink needs.
type CommandSender interface {
	SendCommand(string) error
}

// SerialSink drives a serial-attached cue device with one command per
// transition. Summaries are ignored.
type SerialSink struct {
	Port         CommandSender
	EnterCommand string
	ExitCommand  string
}

func (SerialSink) Name() string { return "serial" }

func (s SerialSink) Notify(_ context.Context, ev Event) error {
	var cmd string
	switch ev.Kind {
	case KindEnter:
		cmd = s.EnterCommand
	case KindExit:
		cmd = s.ExitCommand
	default:
		return nil
	}
	if cmd == "" {
		return nil
	}
	if err := s.Port.SendCommand(cmd); err != nil {
		return fmt.Errorf("send %q: %w", cmd, err)
	}
	return nil
}

// MessageSender is the part of tgbotapi.BotAPI a TelegramSink needs.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink posts events to a chat.
type TelegramSink struct {
	Bot    MessageSender
	ChatID int64
	// SummaryOnly suppresses enter and exit messages.
	SummaryOnly bool
}

// NewTelegramSink connects to the Bot API with token. The connection is
// verified with a getMe call.
func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	return &TelegramSink{Bot: bot, ChatID: chatID}, nil
}

func (*TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Notify(_ context.Context, ev Event) error {
	if s.SummaryOnly && ev.Kind != KindSummary {
		return nil
	}
	msg := tgbotapi.NewMessage(s.ChatID, TelegramText(ev))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := s.Bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// TelegramText renders ev as an HTML chat message.
func TelegramText(ev Event) string {
	d := units.FormatDuration(ev.Duration)
	switch ev.Kind {
	case KindEnter:
		return fmt.Sprintf("Plank started, total <b>%s</b>", d)
	case KindExit:
		return fmt.Sprintf("Plank dropped, total <b>%s</b>", d)
	case KindSummary:
		var b strings.Builder
		fmt.Fprintf(&b, "Session finished: <b>%s</b> held", d)
		if sum := ev.Summary; sum != nil {
			fmt.Fprintf(&b, "\nFrames on form: %d of %d", sum.FramesMeeting, sum.FramesSeen)
			fmt.Fprintf(&b, "\nConfidence: mean %.0f%%, peak %.0f%%", sum.MeanConfidence*100, sum.PeakConfidence*100)
		}
		return b.String()
	default:
		return ev.Kind.String()
	}
}
