package backend

import (
	"fmt"

	"finbot/internal/config"
	gsheet "finbot/internal/sheets/google"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:      backendType,
		SheetName: appConfig.LedgerSheetName,
		Currency:  appConfig.Currency,

		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		ServiceAccount: gsheet.ServiceAccount{
			JSON:         appConfig.GoogleServiceAccountJSON,
			File:         appConfig.GoogleServiceAccountFile,
			ProjectID:    appConfig.GoogleProjectID,
			PrivateKeyID: appConfig.GooglePrivateKeyID,
			PrivateKey:   appConfig.GooglePrivateKey,
			ClientEmail:  appConfig.GoogleClientEmail,
			ClientID:     appConfig.GoogleClientID,
		},

		SeedFile: appConfig.MemorySeedFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.SheetName == "" {
		return fmt.Errorf("ledger sheet name is required")
	}

	switch c.Type {
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case MemoryBackend:
		// SeedFile is optional; a missing file yields an empty template.
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SheetsBackend, MemoryBackend}
}
