// Package sharepoint fetches files from SharePoint document libraries
// through the Microsoft Graph API using an app-only client credentials
// grant.
package sharepoint

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"quickelt/internal/model"
	"quickelt/internal/pipeline"
)

const (
	graphBaseURL   = "https://graph.microsoft.com/v1.0"
	defaultTimeout = 60 * time.Second
)

// Config holds the Graph application registration and the location of
// the file to download. SitePath is the server-relative site path, for
// example "sites/finance", and FilePath is the path of the file inside
// the site's default document library.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Hostname     string // e.g. "contoso.sharepoint.com"
	SitePath     string
	FilePath     string
	Framework    string
	Timeout      time.Duration
}

// Fetcher downloads a single CSV file from SharePoint.
type Fetcher struct {
	cfg     Config
	client  *http.Client
	baseURL string
}

// NewFetcher validates the configuration and builds an HTTP client that
// injects app-only bearer tokens on every request.
func NewFetcher(cfg Config) (*Fetcher, error) {
	if cfg.TenantID == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("tenant id, client id and client secret are required")
	}
	if cfg.Hostname == "" || cfg.SitePath == "" || cfg.FilePath == "" {
		return nil, fmt.Errorf("hostname, site path and file path are required")
	}
	if cfg.Framework == "" {
		return nil, fmt.Errorf("framework is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}

	client := creds.Client(context.Background())
	client.Timeout = cfg.Timeout

	return &Fetcher{cfg: cfg, client: client, baseURL: graphBaseURL}, nil
}

// Origin implements pipeline.Fetcher.
func (f *Fetcher) Origin() string { return "sharepoint" }

// Framework implements pipeline.Fetcher.
func (f *Fetcher) Framework() string { return f.cfg.Framework }

// Extra implements pipeline.Fetcher.
func (f *Fetcher) Extra() map[string]interface{} {
	return map[string]interface{}{"source_file": f.cfg.FilePath}
}

// Fetch implements pipeline.Fetcher. It resolves the site, downloads
// the file content and parses it as CSV.
func (f *Fetcher) Fetch(ctx context.Context) (*model.Batch, error) {
	siteID, err := f.resolveSite(ctx)
	if err != nil {
		return nil, err
	}

	contentURL := fmt.Sprintf("%s/sites/%s/drive/root:/%s:/content",
		f.baseURL, siteID, url.PathEscape(strings.TrimPrefix(f.cfg.FilePath, "/")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, contentURL, nil)
	if err != nil {
		return nil, pipeline.Permanent("build download request", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, pipeline.Transient("download file", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("download file", resp.StatusCode); err != nil {
		return nil, err
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, pipeline.Permanent("parse csv", err)
	}
	if len(rows) == 0 {
		return nil, pipeline.Permanent("parse csv", fmt.Errorf("file has no header row"))
	}

	header := rows[0]
	records := make([]model.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(model.Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		records = append(records, rec)
	}
	return model.NewBatch(header, records), nil
}

// resolveSite looks the site up by hostname and server-relative path
// and returns its Graph site id.
func (f *Fetcher) resolveSite(ctx context.Context) (string, error) {
	siteURL := fmt.Sprintf("%s/sites/%s:/%s", f.baseURL,
		f.cfg.Hostname, strings.Trim(f.cfg.SitePath, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, siteURL, nil)
	if err != nil {
		return "", pipeline.Permanent("build site request", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", pipeline.Transient("resolve site", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("resolve site", resp.StatusCode); err != nil {
		return "", err
	}

	var site struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&site); err != nil {
		return "", pipeline.Permanent("resolve site", err)
	}
	if site.ID == "" {
		return "", pipeline.Permanent("resolve site", fmt.Errorf("site response missing id"))
	}
	return site.ID, nil
}

// classifyStatus maps Graph status codes onto the retry taxonomy.
// Throttling and server errors may clear up; everything else will not.
func classifyStatus(op string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests || status >= 500:
		return pipeline.Transient(op, fmt.Errorf("graph returned status %d", status))
	default:
		return pipeline.Permanent(op, fmt.Errorf("graph returned status %d", status))
	}
}
