package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"saldo/internal/core"
	ports "saldo/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	defaultCacheDuration = 5 * time.Minute
	maxTitleLength       = 100
	idSuffixLength       = 8
)

var (
	_ ports.AccountMirror  = (*Client)(nil)
	_ ports.AccountRemover = (*Client)(nil)
)

// Config selects the spreadsheet and the service account credentials.
// CredentialsJSON wins over CredentialsFile; with neither set
// GOOGLE_APPLICATION_CREDENTIALS is consulted.
type Config struct {
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string
}

// Client mirrors every account into its own tab of one spreadsheet. Tabs
// are titled "<account name> [<id prefix>]" so a renamed account keeps its
// tab.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string

	mu                 sync.Mutex
	tabs               map[string]int64 // title -> sheet id
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	credentials, err := credentialsJSON(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID)
	return NewWithService(svc, spreadsheetID), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test server.
func NewWithService(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		cacheValidDuration: defaultCacheDuration,
	}
}

func credentialsJSON(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(inline), nil
	case file != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set sheets.credentials_json, sheets.credentials_file or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// MirrorAccount rewrites the account's tab: the tab is created or renamed
// as needed, cleared, then filled with the header and one row per template.
func (c *Client) MirrorAccount(ctx context.Context, acc core.Account) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if acc.ID == "" {
		return "", core.ErrMissingAccountID
	}

	title, err := c.ensureTab(ctx, acc)
	if err != nil {
		return "", err
	}

	clearRange := quoteTitle(title)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear tab %s: %w", title, err)
	}

	rows := ports.Rows(acc)
	values := make([][]any, len(rows))
	for i, r := range rows {
		row := make([]any, len(r))
		for j, v := range r {
			row[j] = v
		}
		values[i] = row
	}
	ref := fmt.Sprintf("%s!A1:%s%d", quoteTitle(title), columnName(len(ports.Header)), len(rows))
	vr := &gsheet.ValueRange{Values: values}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, ref, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("write tab %s: %w", title, err)
	}

	slog.InfoContext(ctx, "Mirrored account to Google Sheets",
		"account_id", acc.ID,
		"tab", title,
		"rows", len(rows)-1)
	return ref, nil
}

// RemoveAccount deletes the account's tab if there is one.
func (c *Client) RemoveAccount(ctx context.Context, accountID string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	tabs, err := c.listTabs(ctx)
	if err != nil {
		return err
	}
	title, sheetID, ok := findTab(tabs, accountID)
	if !ok {
		return nil
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteSheet: &gsheet.DeleteSheetRequest{SheetId: sheetID},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete tab %s: %w", title, err)
	}
	c.invalidateTabCache()
	slog.InfoContext(ctx, "Removed account tab", "account_id", accountID, "tab", title)
	return nil
}

func (c *Client) ensureTab(ctx context.Context, acc core.Account) (string, error) {
	want := tabTitle(acc)
	tabs, err := c.listTabs(ctx)
	if err != nil {
		return "", err
	}
	current, sheetID, ok := findTab(tabs, acc.ID)
	if ok && current == want {
		return want, nil
	}

	var req *gsheet.Request
	if ok {
		req = &gsheet.Request{UpdateSheetProperties: &gsheet.UpdateSheetPropertiesRequest{
			Properties: &gsheet.SheetProperties{SheetId: sheetID, Title: want},
			Fields:     "title",
		}}
	} else {
		req = &gsheet.Request{AddSheet: &gsheet.AddSheetRequest{
			Properties: &gsheet.SheetProperties{Title: want},
		}}
	}
	batch := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{req}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, batch).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("prepare tab %s: %w", want, err)
	}
	c.invalidateTabCache()
	return want, nil
}

// listTabs returns title -> sheet id, cached for cacheValidDuration.
func (c *Client) listTabs(ctx context.Context) (map[string]int64, error) {
	c.mu.Lock()
	if c.tabs != nil && time.Now().Before(c.cacheExpiresAt) {
		tabs := c.tabs
		c.mu.Unlock()
		return tabs, nil
	}
	c.mu.Unlock()

	resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}
	tabs := make(map[string]int64, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties == nil {
			continue
		}
		tabs[s.Properties.Title] = s.Properties.SheetId
	}

	c.mu.Lock()
	c.tabs = tabs
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()
	return tabs, nil
}

func (c *Client) invalidateTabCache() {
	c.mu.Lock()
	c.tabs = nil
	c.cacheExpiresAt = time.Time{}
	c.mu.Unlock()
}

func idSuffix(accountID string) string {
	id := accountID
	if len(id) > idSuffixLength {
		id = id[:idSuffixLength]
	}
	return " [" + id + "]"
}

// tabTitle builds a valid sheet title for the account. Characters Sheets
// rejects in titles are dropped.
func tabTitle(acc core.Account) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']', '\'':
			return -1
		}
		return r
	}, strings.TrimSpace(acc.Name))
	if name == "" {
		name = "Account"
	}
	suffix := idSuffix(acc.ID)
	if room := maxTitleLength - len(suffix); len(name) > room {
		name = strings.ToValidUTF8(name[:room], "")
	}
	return name + suffix
}

func findTab(tabs map[string]int64, accountID string) (string, int64, bool) {
	suffix := idSuffix(accountID)
	for title, id := range tabs {
		if strings.HasSuffix(title, suffix) {
			return title, id, true
		}
	}
	return "", 0, false
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// columnName converts a 1-based column index to A1 letters.
func columnName(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
