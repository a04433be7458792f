package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/banshee-data/plank.report/internal/config"
	"github.com/banshee-data/plank.report/internal/cue"
	"github.com/banshee-data/plank.report/internal/monitoring"
)

const (
	envTelegramToken = "PLANK_TELEGRAM_TOKEN"
	envTelegramChat  = "PLANK_TELEGRAM_CHAT"
)

// loadTuning reads path, or returns the built-in defaults when path is empty.
func loadTuning(path string) (*config.TuningConfig, error) {
	if strings.TrimSpace(path) == "" {
		return config.DefaultTuningConfig(), nil
	}
	cfg, err := config.LoadTuningConfig(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// telegramFromEnv reads the bot token and chat id. ok is false when the
// token is unset, which disables the chat sink.
func telegramFromEnv(getenv func(string) string) (token string, chatID int64, ok bool, err error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	token = strings.TrimSpace(getenv(envTelegramToken))
	if token == "" {
		return "", 0, false, nil
	}
	raw := strings.TrimSpace(getenv(envTelegramChat))
	if raw == "" {
		return "", 0, false, fmt.Errorf("%s is set but %s is empty", envTelegramToken, envTelegramChat)
	}
	chatID, err = strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid %s %q: %w", envTelegramChat, raw, err)
	}
	return token, chatID, true, nil
}

// sinkOptions gathers what buildSinks needs beyond the tuning file.
type sinkOptions struct {
	// Serial drives the cue device; nil disables the serial sink.
	Serial cue.CommandSender
	// Telegram is an already connected chat sink; nil disables it.
	Telegram *cue.TelegramSink
	// SummaryOnly limits the chat to end-of-session summaries.
	SummaryOnly bool
}

// buildSinks returns the cue sinks for a run. The log sink is always first.
func buildSinks(tuning *config.TuningConfig, opts sinkOptions) []cue.Sink {
	sinks := []cue.Sink{cue.LogSink{Logger: monitoring.L()}}
	if opts.Serial != nil {
		sinks = append(sinks, cue.SerialSink{
			Port:         opts.Serial,
			EnterCommand: tuning.GetCueEnterCommand(),
			ExitCommand:  tuning.GetCueExitCommand(),
		})
	}
	if opts.Telegram != nil {
		opts.Telegram.SummaryOnly = opts.SummaryOnly
		sinks = append(sinks, opts.Telegram)
	}
	names := make([]string, len(sinks))
	for i, s := range sinks {
		names[i] = s.Name()
	}
	monitoring.L().Info("cue sinks configured", zap.Strings("sinks", names))
	return sinks
}

// loadDevLines reads a JSONL frame recording for the simulated serial
// device. Blank lines are skipped.
func loadDevLines(path string) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dev frames file: %w", err)
	}
	var lines [][]byte
	for _, l := range strings.Split(string(data), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, []byte(l))
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("dev frames file %s is empty", path)
	}
	return lines, nil
}
