package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldMonth      = "month"
	FieldRow        = "row"
	FieldAmount     = "amount"
	FieldCategory   = "category"
	FieldTool       = "tool"
	FieldRoundTrip  = "round_trip"
	FieldState      = "state"
	FieldChatID     = "chat_id"
	FieldEventID    = "event_id"
	FieldEventKind  = "event_kind"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentLedger     = "ledger"
	ComponentAssistant  = "assistant"
	ComponentCategorize = "categorize"
	ComponentTelegram   = "telegram"
	ComponentSpeech     = "speech"
	ComponentAMQP       = "amqp"
	ComponentJournal    = "journal"
	ComponentStorage    = "storage"
	ComponentBackend    = "backend"
	ComponentRateLimit  = "rate_limit"
)

// Operations defines standard operation names
const (
	OpAppend     = "append"
	OpQuery      = "query"
	OpList       = "list"
	OpBudget     = "budget"
	OpSetBudget  = "set_budget"
	OpPublish    = "publish"
	OpConsume    = "consume"
	OpTranscribe = "transcribe"
	OpSynthesize = "synthesize"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)
