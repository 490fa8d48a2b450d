package amqp

import (
	"encoding/json"
	"errors"
	"fmt"

	"finbot/internal/core"
)

// ErrMalformedEvent marks a delivery that can never be processed.
var ErrMalformedEvent = errors.New("malformed ledger event")

// EncodeEvent serialises e for publishing.
func EncodeEvent(e core.LedgerEvent) ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent parses a delivery body. Bodies that are not JSON, or lack an
// id or kind, wrap ErrMalformedEvent.
func DecodeEvent(data []byte) (core.LedgerEvent, error) {
	var e core.LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return core.LedgerEvent{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if e.ID == "" || e.Kind == "" {
		return core.LedgerEvent{}, fmt.Errorf("%w: missing id or kind", ErrMalformedEvent)
	}
	return e, nil
}
