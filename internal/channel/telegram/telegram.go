// Package telegram feeds Telegram text and voice messages into the
// assistant and sends its answers back to the same chat.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/semaphore"

	"finbot/internal/assistant"
	"finbot/internal/log"
	"finbot/internal/metrics"
	"finbot/internal/speech"
)

const (
	voiceAck      = "Processing your voice message..."
	textApology   = "An error occurred while processing your request."
	voiceApology  = "An error occurred while processing your voice message."
	voiceDisabled = "Voice messages are not enabled on this bot. Please send text instead."
	welcome       = "Hi! Tell me what you spent or earned, or ask about your budget. For example: \"I spent 200 on coffee\"."
)

// Bot is the subset of *tgbotapi.BotAPI the adapter uses.
type Bot interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Runner answers one query.
type Runner interface {
	Run(ctx context.Context, query string) (assistant.Outcome, error)
}

// Config holds the optional collaborators. Voice input needs both
// Transcoder and Transcriber; voice replies additionally need Synthesizer.
type Config struct {
	Transcoder     speech.Transcoder
	Transcriber    speech.Transcriber
	Synthesizer    speech.Synthesizer
	VoiceReplies   bool
	VoiceTimeout   time.Duration
	MaxConcurrency int64
	TempDir        string
	HTTPClient     *http.Client
	Logger         *log.Logger
}

type Adapter struct {
	bot    Bot
	runner Runner
	cfg    Config
	sem    *semaphore.Weighted
	log    *log.Logger
	speech *log.Logger
}

func New(bot Bot, runner Runner, cfg Config) *Adapter {
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	if cfg.VoiceTimeout <= 0 {
		cfg.VoiceTimeout = time.Minute
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.VoiceTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default(log.ComponentTelegram)
	}
	return &Adapter{
		bot:    bot,
		runner: runner,
		cfg:    cfg,
		sem:    semaphore.NewWeighted(cfg.MaxConcurrency),
		log:    logger,
		speech: logger.WithComponent(log.ComponentSpeech),
	}
}

// Run long-polls for updates until ctx is cancelled, then waits for
// in-flight messages to finish.
func (a *Adapter) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := a.bot.GetUpdatesChan(u)
	defer a.bot.StopReceivingUpdates()

	a.log.Info("Telegram poller started", log.FieldOperation, log.OpStartup)

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if err := a.sem.Acquire(ctx, 1); err != nil {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer a.sem.Release(1)
				a.HandleUpdate(ctx, upd)
			}()
		}
	}
}

// HandleUpdate processes a single update synchronously.
func (a *Adapter) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	switch {
	case msg.Voice != nil:
		a.handleVoice(ctx, chatID, msg.Voice.FileID)
	case msg.IsCommand() && msg.Command() == "start":
		a.reply(ctx, chatID, welcome)
	case strings.TrimSpace(msg.Text) != "":
		a.handleText(ctx, chatID, msg.Text)
	}
}

func (a *Adapter) handleText(ctx context.Context, chatID int64, text string) {
	a.typing(ctx, chatID)
	out, err := a.runner.Run(ctx, text)
	if err != nil {
		a.log.ErrorContext(ctx, "Assistant run failed", log.FieldChatID, chatID, log.FieldError, err)
		metrics.ChannelMessages.WithLabelValues("telegram", "text", "error").Inc()
		a.reply(ctx, chatID, textApology)
		return
	}
	metrics.ChannelMessages.WithLabelValues("telegram", "text", "success").Inc()
	a.reply(ctx, chatID, out.Answer)
}

func (a *Adapter) handleVoice(ctx context.Context, chatID int64, fileID string) {
	if a.cfg.Transcoder == nil || a.cfg.Transcriber == nil {
		a.reply(ctx, chatID, voiceDisabled)
		return
	}
	a.reply(ctx, chatID, voiceAck)

	dir, err := os.MkdirTemp(a.cfg.TempDir, "finbot-voice-*")
	if err != nil {
		a.voiceFailed(ctx, chatID, fmt.Errorf("create temp dir: %w", err))
		return
	}
	defer os.RemoveAll(dir)

	query, err := a.transcribe(ctx, dir, fileID)
	if err != nil {
		a.voiceFailed(ctx, chatID, err)
		return
	}
	a.speech.DebugContext(ctx, "Voice message transcribed", log.FieldOperation, log.OpTranscribe, log.FieldChatID, chatID)

	a.typing(ctx, chatID)
	out, err := a.runner.Run(ctx, query)
	if err != nil {
		a.voiceFailed(ctx, chatID, err)
		return
	}
	metrics.ChannelMessages.WithLabelValues("telegram", "voice", "success").Inc()
	a.reply(ctx, chatID, out.Answer)

	if a.cfg.VoiceReplies && a.cfg.Synthesizer != nil {
		a.speak(ctx, chatID, dir, out.Answer)
	}
}

// transcribe downloads the voice note into dir, converts it and returns the
// transcript. Files left in dir are removed by the caller.
func (a *Adapter) transcribe(ctx context.Context, dir, fileID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.VoiceTimeout)
	defer cancel()

	ogg := filepath.Join(dir, "voice.ogg")
	if err := a.download(ctx, fileID, ogg); err != nil {
		return "", err
	}
	mp3 := filepath.Join(dir, "voice.mp3")
	if err := a.cfg.Transcoder.ToMP3(ctx, ogg, mp3); err != nil {
		return "", err
	}
	return a.cfg.Transcriber.Transcribe(ctx, mp3)
}

func (a *Adapter) download(ctx context.Context, fileID, dst string) error {
	url, err := a.bot.GetFileDirectURL(fileID)
	if err != nil {
		return fmt.Errorf("resolve voice file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := a.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("download voice file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download voice file: status %d", resp.StatusCode)
	}

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("save voice file: %w", err)
	}
	return f.Close()
}

func (a *Adapter) speak(ctx context.Context, chatID int64, dir, text string) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.VoiceTimeout)
	defer cancel()

	path := filepath.Join(dir, "reply.mp3")
	if err := a.cfg.Synthesizer.Synthesize(ctx, text, path); err != nil {
		a.speech.WarnContext(ctx, "Voice reply synthesis failed", log.FieldOperation, log.OpSynthesize, log.FieldChatID, chatID, log.FieldError, err)
		return
	}
	if _, err := a.bot.Send(tgbotapi.NewVoice(chatID, tgbotapi.FilePath(path))); err != nil {
		a.log.WarnContext(ctx, "Failed to send voice reply", log.FieldChatID, chatID, log.FieldError, err)
	}
}

func (a *Adapter) voiceFailed(ctx context.Context, chatID int64, err error) {
	level := a.log.ErrorContext
	if errors.Is(err, context.Canceled) {
		level = a.log.WarnContext
	}
	level(ctx, "Voice message failed", log.FieldChatID, chatID, log.FieldError, err)
	metrics.ChannelMessages.WithLabelValues("telegram", "voice", "error").Inc()
	a.reply(ctx, chatID, voiceApology)
}

func (a *Adapter) typing(ctx context.Context, chatID int64) {
	if _, err := a.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		a.log.DebugContext(ctx, "Chat action failed", log.FieldChatID, chatID, log.FieldError, err)
	}
}

func (a *Adapter) reply(ctx context.Context, chatID int64, text string) {
	if _, err := a.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		a.log.ErrorContext(ctx, "Failed to send message", log.FieldChatID, chatID, log.FieldError, err)
	}
}
