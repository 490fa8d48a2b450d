package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "finbot/internal/sheets"
)

const tokenURI = "https://oauth2.googleapis.com/token"

var ErrMissingCredentials = errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS or the GOOGLE_PRIVATE_KEY/GOOGLE_CLIENT_EMAIL pair)")

// ServiceAccount describes where the service account key comes from. The
// first non-empty source wins: inline JSON, key file, then split fields.
type ServiceAccount struct {
	JSON         string
	File         string
	ProjectID    string
	PrivateKeyID string
	PrivateKey   string
	ClientEmail  string
	ClientID     string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// Ensure interface conformance
var _ ports.CellStore = (*Client)(nil)

// New creates a Sheets client authenticated as the service account.
func New(ctx context.Context, spreadsheetID string, sa ServiceAccount) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := sa.CredentialsJSON()
	if err != nil {
		return nil, err
	}
	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// NewWithService wraps an existing service, mostly for tests that point the
// service at a fake endpoint.
func NewWithService(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID}
}

// CredentialsJSON returns the service account key document.
func (sa ServiceAccount) CredentialsJSON() ([]byte, error) {
	switch {
	case strings.TrimSpace(sa.JSON) != "":
		return []byte(strings.TrimSpace(sa.JSON)), nil
	case strings.TrimSpace(sa.File) != "":
		b, err := os.ReadFile(strings.TrimSpace(sa.File))
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	case sa.PrivateKey != "" && sa.ClientEmail != "":
		// Keys pasted into env vars usually carry literal \n sequences.
		key := strings.ReplaceAll(sa.PrivateKey, `\n`, "\n")
		return json.Marshal(map[string]string{
			"type":           "service_account",
			"project_id":     sa.ProjectID,
			"private_key_id": sa.PrivateKeyID,
			"private_key":    key,
			"client_email":   sa.ClientEmail,
			"client_id":      sa.ClientID,
			"token_uri":      tokenURI,
		})
	default:
		return nil, ErrMissingCredentials
	}
}

// newSheetsService builds a Sheets service whose token source and API calls
// share one pooled transport.
func newSheetsService(ctx context.Context, credentialsJSON []byte) (*gsheet.Service, error) {
	jwt, err := googleoauth.JWTConfigFromJSON(credentialsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"client_email", jwt.Email,
		"scope", gsheet.SpreadsheetsScope)

	base := newHTTPClientWithPooling()
	authed := jwt.Client(context.WithValue(context.Background(), oauth2.HTTPClient, base))
	authed.Timeout = base.Timeout

	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(authed))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API
// with connection pooling, timeouts and keep-alive.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// ReadRange fetches the formatted values of rng.
func (c *Client) ReadRange(ctx context.Context, rng string) ([][]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return stringRows(resp.Values), nil
}

// WriteRange writes values into rng with USER_ENTERED semantics.
func (c *Client) WriteRange(ctx context.Context, rng string, values [][]any) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", rng, err)
	}
	return nil
}
