package cue

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/banshee-data/plank.report/internal/serialmux"
)

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := LogSink{Logger: zap.New(core)}
	assert.Equal(t, "log", s.Name())

	require.NoError(t, s.Notify(context.Background(), Event{Kind: KindEnter, SessionID: "s", Duration: time.Second, Confidence: 0.8}))
	require.NoError(t, s.Notify(context.Background(), Event{
		Kind:     KindSummary,
		Duration: 65 * time.Second,
		Summary:  &Summary{FramesSeen: 10, FramesMeeting: 7, MeanConfidence: 0.7, PeakConfidence: 1},
	}))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "hold enter", entries[0].Message)
	assert.Equal(t, 0.8, entries[0].ContextMap()["confidence"])
	assert.Equal(t, "session summary", entries[1].Message)
	assert.Equal(t, "01:05", entries[1].ContextMap()["formatted"])
	assert.Equal(t, int64(7), entries[1].ContextMap()["frames_meeting"])
}

func TestSerialSink(t *testing.T) {
	port := serialmux.NewTestableSerialPort()
	mux := serialmux.NewSerialMux(port)
	s := SerialSink{Port: mux, EnterCommand: "CUE ENTER", ExitCommand: "CUE EXIT"}
	ctx := context.Background()

	require.NoError(t, s.Notify(ctx, Event{Kind: KindEnter}))
	require.NoError(t, s.Notify(ctx, Event{Kind: KindSummary}))
	require.NoError(t, s.Notify(ctx, Event{Kind: KindExit}))
	assert.Equal(t, "CUE ENTER\nCUE EXIT\n", port.GetWrittenData())

	port.WriteError = errors.New("unplugged")
	err := s.Notify(ctx, Event{Kind: KindEnter})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CUE ENTER")

	silent := SerialSink{Port: mux}
	assert.NoError(t, silent.Notify(ctx, Event{Kind: KindEnter}))
}

func TestTelegramText(t *testing.T) {
	assert.Equal(t, "Plank started, total <b>00:01</b>", TelegramText(Event{Kind: KindEnter, Duration: time.Second}))
	assert.Equal(t, "Plank dropped, total <b>01:05</b>", TelegramText(Event{Kind: KindExit, Duration: 65 * time.Second}))
	assert.Equal(t,
		"Session finished: <b> 1:02:05</b> held\nFrames on form: 3 of 4\nConfidence: mean 75%, peak 100%",
		TelegramText(Event{
			Kind:     KindSummary,
			Duration: 3725 * time.Second,
			Summary:  &Summary{FramesSeen: 4, FramesMeeting: 3, MeanConfidence: 0.75, PeakConfidence: 1},
		}))
}

// fakeBotAPI serves the two Bot API methods the sink uses.
type fakeBotAPI struct {
	mu    sync.Mutex
	texts []string
	fail  bool
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		fmt.Fprint(w, `{"ok":true,"result":{"id":7,"is_bot":true,"first_name":"Plank","username":"plank_bot"}}`)
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_ = r.ParseForm()
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.fail {
			fmt.Fprint(w, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`)
			return
		}
		f.texts = append(f.texts, r.PostForm.Get("chat_id")+"|"+r.PostForm.Get("parse_mode")+"|"+r.PostForm.Get("text"))
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`)
	default:
		http.NotFound(w, r)
	}
}

func TestTelegramSink(t *testing.T) {
	api := &fakeBotAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint("TOKEN", srv.URL+"/bot%s/%s")
	require.NoError(t, err)
	assert.Equal(t, "plank_bot", bot.Self.UserName)

	s := &TelegramSink{Bot: bot, ChatID: 42}
	assert.Equal(t, "telegram", s.Name())
	require.NoError(t, s.Notify(context.Background(), Event{Kind: KindEnter, Duration: time.Second}))

	s.SummaryOnly = true
	require.NoError(t, s.Notify(context.Background(), Event{Kind: KindExit}))
	require.NoError(t, s.Notify(context.Background(), Event{Kind: KindSummary, Duration: 2 * time.Second}))

	api.mu.Lock()
	assert.Equal(t, []string{
		"42|HTML|Plank started, total <b>00:01</b>",
		"42|HTML|Session finished: <b>00:02</b> held",
	}, api.texts)
	api.fail = true
	api.mu.Unlock()

	err = s.Notify(context.Background(), Event{Kind: KindSummary})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}
