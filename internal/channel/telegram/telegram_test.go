package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finbot/internal/assistant"
	"finbot/internal/log"
)

type fakeBot struct {
	mu       sync.Mutex
	updates  chan tgbotapi.Update
	texts    []string
	voices   []string
	actions  int
	fileURL  string
	stopped  bool
	voiceHas []byte
}

func (b *fakeBot) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return b.updates }

func (b *fakeBot) StopReceivingUpdates() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		b.texts = append(b.texts, m.Text)
	case tgbotapi.VoiceConfig:
		p := string(m.File.(tgbotapi.FilePath))
		b.voices = append(b.voices, p)
		b.voiceHas, _ = os.ReadFile(p)
	}
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.actions++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) GetFileDirectURL(string) (string, error) { return b.fileURL, nil }

func (b *fakeBot) sent() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.texts...)
}

type fakeRunner struct {
	mu      sync.Mutex
	queries []string
	answer  string
	err     error
	block   chan struct{}
	active  int
	peak    int
}

func (r *fakeRunner) Run(_ context.Context, q string) (assistant.Outcome, error) {
	r.mu.Lock()
	r.queries = append(r.queries, q)
	r.active++
	r.peak = max(r.peak, r.active)
	r.mu.Unlock()
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.active--
	r.mu.Unlock()
	return assistant.Outcome{Answer: r.answer, State: assistant.StateDone}, r.err
}

type fakeTranscoder struct {
	src, dst string
	err      error
}

func (f *fakeTranscoder) ToMP3(_ context.Context, src, dst string) error {
	f.src, f.dst = src, dst
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dst, []byte("mp3"), 0o600)
}

type fakeTranscriber struct {
	text string
	err  error
	got  []byte
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path string) (string, error) {
	f.got, _ = os.ReadFile(path)
	return f.text, f.err
}

type fakeSynth struct{}

func (fakeSynth) Synthesize(_ context.Context, text, dst string) error {
	return os.WriteFile(dst, []byte("spoken: "+text), 0o600)
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: text}}
}

func voiceUpdate(chatID int64) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Voice: &tgbotapi.Voice{FileID: "file-1"}}}
}

func oggServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "OggS voice")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func emptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary audio files must be removed")
}

func TestTextMessage(t *testing.T) {
	bot := &fakeBot{}
	runner := &fakeRunner{answer: "Added expense of 200 INR for coffee"}
	a := New(bot, runner, Config{Logger: log.Discard()})

	a.HandleUpdate(context.Background(), textUpdate(7, "I spent 200 on coffee"))
	assert.Equal(t, []string{"I spent 200 on coffee"}, runner.queries)
	assert.Equal(t, []string{"Added expense of 200 INR for coffee"}, bot.sent())
	assert.Equal(t, 1, bot.actions)
}

func TestTextMessageRunnerError(t *testing.T) {
	bot := &fakeBot{}
	runner := &fakeRunner{err: errors.New("model unavailable: 503")}
	New(bot, runner, Config{Logger: log.Discard()}).HandleUpdate(context.Background(), textUpdate(7, "hello"))
	assert.Equal(t, []string{textApology}, bot.sent())
}

func TestIgnoresEmptyAndNonMessageUpdates(t *testing.T) {
	bot := &fakeBot{}
	runner := &fakeRunner{}
	a := New(bot, runner, Config{Logger: log.Discard()})
	a.HandleUpdate(context.Background(), tgbotapi.Update{})
	a.HandleUpdate(context.Background(), textUpdate(1, "   "))
	assert.Empty(t, runner.queries)
	assert.Empty(t, bot.sent())
}

func TestVoiceMessage(t *testing.T) {
	tmp := t.TempDir()
	bot := &fakeBot{fileURL: oggServer(t).URL + "/voice.ogg"}
	runner := &fakeRunner{answer: "Set budget for this month to ₹5,000.00."}
	tc := &fakeTranscoder{}
	tr := &fakeTranscriber{text: "set my budget to 5000"}
	a := New(bot, runner, Config{
		Transcoder:  tc,
		Transcriber: tr,
		TempDir:     tmp,
		Logger:      log.Discard(),
	})

	a.HandleUpdate(context.Background(), voiceUpdate(9))

	assert.Equal(t, []string{voiceAck, "Set budget for this month to ₹5,000.00."}, bot.sent())
	assert.Equal(t, []string{"set my budget to 5000"}, runner.queries)
	assert.Equal(t, "voice.ogg", filepath.Base(tc.src))
	assert.Equal(t, "mp3", string(tr.got))
	assert.Empty(t, bot.voices)
	emptyDir(t, tmp)
}

func TestVoiceMessageFailuresCleanUp(t *testing.T) {
	tests := []struct {
		name        string
		transcoder  *fakeTranscoder
		transcriber *fakeTranscriber
	}{
		{"transcode fails", &fakeTranscoder{err: errors.New("ffmpeg: exit status 1")}, &fakeTranscriber{text: "x"}},
		{"transcription fails", &fakeTranscoder{}, &fakeTranscriber{err: errors.New("groq: 500")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmp := t.TempDir()
			bot := &fakeBot{fileURL: oggServer(t).URL}
			runner := &fakeRunner{answer: "unused"}
			a := New(bot, runner, Config{Transcoder: tt.transcoder, Transcriber: tt.transcriber, TempDir: tmp, Logger: log.Discard()})

			a.HandleUpdate(context.Background(), voiceUpdate(3))

			assert.Equal(t, []string{voiceAck, voiceApology}, bot.sent(), "internal errors are not shown")
			assert.Empty(t, runner.queries)
			emptyDir(t, tmp)
		})
	}
}

func TestVoiceDisabled(t *testing.T) {
	bot := &fakeBot{}
	New(bot, &fakeRunner{}, Config{Logger: log.Discard()}).HandleUpdate(context.Background(), voiceUpdate(3))
	assert.Equal(t, []string{voiceDisabled}, bot.sent())
}

func TestVoiceReply(t *testing.T) {
	tmp := t.TempDir()
	bot := &fakeBot{fileURL: oggServer(t).URL}
	a := New(bot, &fakeRunner{answer: "Done"}, Config{
		Transcoder:   &fakeTranscoder{},
		Transcriber:  &fakeTranscriber{text: "hi"},
		Synthesizer:  fakeSynth{},
		VoiceReplies: true,
		TempDir:      tmp,
		Logger:       log.Discard(),
	})

	a.HandleUpdate(context.Background(), voiceUpdate(3))
	require.Len(t, bot.voices, 1)
	assert.Equal(t, "spoken: Done", string(bot.voiceHas))
	emptyDir(t, tmp)
}

func TestRunBoundsConcurrency(t *testing.T) {
	bot := &fakeBot{updates: make(chan tgbotapi.Update)}
	runner := &fakeRunner{answer: "ok", block: make(chan struct{})}
	a := New(bot, runner, Config{MaxConcurrency: 2, Logger: log.Discard()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	for i := 0; i < 3; i++ {
		select {
		case bot.updates <- textUpdate(int64(i), "q"):
		case <-time.After(50 * time.Millisecond):
		}
	}
	assert.Eventually(t, func() bool {
		runner.mu.Lock()
		defer runner.mu.Unlock()
		return runner.active == 2
	}, time.Second, 5*time.Millisecond)

	close(runner.block)
	cancel()
	require.NoError(t, <-done)
	assert.LessOrEqual(t, runner.peak, 2)
	assert.True(t, bot.stopped)
}

func TestSpeechLogsUnderItsComponent(t *testing.T) {
	a := New(&fakeBot{}, &fakeRunner{}, Config{Logger: log.Discard()})
	assert.Equal(t, log.ComponentSpeech, a.speech.Component())
}
