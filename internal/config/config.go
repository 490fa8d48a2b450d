package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
)

type Config struct {
	// HTTP Server
	Port string

	// Ledger backend selection: memory or sheets
	DataBackend    string
	MemorySeedFile string

	// Google Sheets
	GoogleSpreadsheetID      string
	LedgerSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleProjectID          string
	GooglePrivateKeyID       string
	GooglePrivateKey         string
	GoogleClientEmail        string
	GoogleClientID           string

	// Gemini
	GeminiAPIKey  string
	GeminiModel   string
	CategoryModel string

	// Telegram
	TelegramBotToken       string
	TelegramMaxConcurrency int

	// Speech
	GroqAPIKey         string
	GroqBaseURL        string
	TranscriptionModel string
	FFmpegPath         string
	ElevenLabsAPIKey   string
	ElevenLabsVoiceID  string
	VoiceReplies       bool

	// AMQP ledger events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Journal database
	SQLiteDBPath string

	// Assistant
	MaxRoundTrips int
	ModelTimeout  time.Duration
	StoreTimeout  time.Duration
	VoiceTimeout  time.Duration
	Currency      string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "3000"),

		DataBackend:    getEnv("DATA_BACKEND", "sheets"),
		MemorySeedFile: getEnv("MEMORY_SEED_FILE", ""),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		LedgerSheetName:          getEnv("LEDGER_SHEET_NAME", "Budget"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		GoogleProjectID:          getEnv("GOOGLE_PROJECT_ID", ""),
		GooglePrivateKeyID:       getEnv("GOOGLE_PRIVATE_KEY_ID", ""),
		GooglePrivateKey:         getEnv("GOOGLE_PRIVATE_KEY", ""),
		GoogleClientEmail:        getEnv("GOOGLE_CLIENT_EMAIL", ""),
		GoogleClientID:           getEnv("GOOGLE_CLIENT_ID", ""),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		CategoryModel: getEnv("CATEGORY_MODEL", "gemini-1.5-flash"),

		TelegramBotToken:       getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramMaxConcurrency: getEnvInt("TELEGRAM_MAX_CONCURRENCY", 4),

		GroqAPIKey:         getEnv("GROQ_API_KEY", ""),
		GroqBaseURL:        getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		TranscriptionModel: getEnv("TRANSCRIPTION_MODEL", "whisper-large-v3"),
		FFmpegPath:         getEnv("FFMPEG_PATH", "ffmpeg"),
		ElevenLabsAPIKey:   getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID:  getEnv("ELEVENLABS_VOICE_ID", "JBFqnCBsd6RMkjVDRZzb"),
		VoiceReplies:       getEnvBool("VOICE_REPLIES", false),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finbot"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finbot.db"),

		MaxRoundTrips: getEnvInt("MAX_ROUND_TRIPS", 6),
		ModelTimeout:  getEnvDuration("MODEL_TIMEOUT", 30*time.Second),
		StoreTimeout:  getEnvDuration("STORE_TIMEOUT", 15*time.Second),
		VoiceTimeout:  getEnvDuration("VOICE_TIMEOUT", 60*time.Second),
		Currency:      getEnv("CURRENCY", money.INR),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate checks everything the assistant needs: the ledger backend, the
// model key and the tuning knobs. Optional integrations are checked only
// when configured.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sheets"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if strings.TrimSpace(c.LedgerSheetName) == "" {
		errors = append(errors, "ledger sheet name cannot be empty")
	}

	if c.DataBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		hasSplitKey := c.GooglePrivateKey != "" && c.GoogleClientEmail != ""
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && !hasSplitKey {
			errors = append(errors, "service account credentials are required for sheets backend (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_PRIVATE_KEY with GOOGLE_CLIENT_EMAIL)")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.GeminiAPIKey == "" {
		errors = append(errors, "GEMINI_API_KEY is required")
	}

	if c.MaxRoundTrips < 1 || c.MaxRoundTrips > 20 {
		errors = append(errors, fmt.Sprintf("invalid max round trips %d: must be between 1 and 20", c.MaxRoundTrips))
	}
	if c.TelegramMaxConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid telegram max concurrency %d: must be at least 1", c.TelegramMaxConcurrency))
	}
	for _, t := range []struct {
		name string
		d    time.Duration
	}{
		{"model timeout", c.ModelTimeout},
		{"store timeout", c.StoreTimeout},
		{"voice timeout", c.VoiceTimeout},
	} {
		if t.d < time.Second {
			errors = append(errors, fmt.Sprintf("invalid %s %v: must be at least 1 second", t.name, t.d))
		}
	}

	if money.GetCurrency(c.Currency) == nil {
		errors = append(errors, fmt.Sprintf("unknown currency code '%s'", c.Currency))
	}

	if c.VoiceReplies && c.ElevenLabsAPIKey == "" {
		errors = append(errors, "ELEVENLABS_API_KEY is required when VOICE_REPLIES is enabled")
	}

	errors = append(errors, c.amqpErrors()...)
	errors = append(errors, c.logErrors()...)

	return joinErrors(errors)
}

// ValidateJournal checks what the journal consumer and history reader need.
func (c *Config) ValidateJournal() error {
	var errors []string

	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the journal")
	}
	errors = append(errors, c.amqpErrors()...)

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}
	errors = append(errors, c.logErrors()...)

	return joinErrors(errors)
}

func (c *Config) amqpErrors() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errors []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errors
}

func (c *Config) logErrors() []string {
	var errors []string
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}
	return errors
}

func joinErrors(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// TelegramEnabled reports whether the Telegram poller should run.
func (c *Config) TelegramEnabled() bool { return c.TelegramBotToken != "" }

// VoiceInputEnabled reports whether voice messages can be transcribed.
func (c *Config) VoiceInputEnabled() bool { return c.GroqAPIKey != "" }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
