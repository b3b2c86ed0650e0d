package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config controls the archive client.
type Config struct {
	// BaseURL is the REST API root, e.g. https://www.courtlistener.com/api/rest/v3.
	BaseURL string
	// DownloadHost prefixes the relative absolute_url values in docket results.
	DownloadHost string
	// StorageHost prefixes filepath_local values in document results.
	StorageHost string
	// Token is the optional API authorization token.
	Token   string
	Timeout time.Duration
}

// Client talks to the archive REST API. It is safe for concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// Docket sources included in availability queries (PACER-derived entries).
const docketSources = "1,3,5,7,9,11,13,15"

// New builds a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// DownloadURL resolves a docket result's relative absolute_url against the
// archive's download host.
func (c *Client) DownloadURL(absolutePath string) string {
	return strings.TrimSuffix(c.cfg.DownloadHost, "/") + "/" + strings.TrimPrefix(absolutePath, "/")
}

// StorageURL resolves a document result's filepath_local against the
// archive's storage host.
func (c *Client) StorageURL(filepathLocal string) string {
	return strings.TrimSuffix(c.cfg.StorageHost, "/") + "/" + strings.TrimPrefix(filepathLocal, "/")
}

// DocketAvailability checks whether the archive holds a docket for the case.
func (c *Client) DocketAvailability(ctx context.Context, court, caseID string) (DocketAvailability, error) {
	q := url.Values{}
	q.Set("pacer_case_id", caseID)
	q.Set("court", court)
	q.Set("source__in", docketSources)
	q.Set("fields", "absolute_url,date_modified,date_last_filing")

	var out DocketAvailability
	if err := c.getJSON(ctx, "/dockets/?"+q.Encode(), &out); err != nil {
		return DocketAvailability{}, err
	}
	return out, nil
}

// DocumentAvailability checks which of the given document ids the archive
// holds for the case.
func (c *Client) DocumentAvailability(ctx context.Context, court, caseID string, docIDs []string) (DocumentAvailability, error) {
	q := url.Values{}
	q.Set("court", court)
	if caseID != "" {
		q.Set("pacer_case_id", caseID)
	}
	q.Set("pacer_doc_id__in", strings.Join(docIDs, ","))
	q.Set("fields", "pacer_doc_id,filepath_local")

	var out DocumentAvailability
	if err := c.getJSON(ctx, "/recap-documents/?"+q.Encode(), &out); err != nil {
		return DocumentAvailability{}, err
	}
	return out, nil
}

// UploadDocket sends a captured docket page. The boolean mirrors the
// archive's accepted/rejected outcome.
func (c *Client) UploadDocket(ctx context.Context, court, caseID, markup string) (bool, error) {
	fields := map[string]string{
		"court":         court,
		"pacer_case_id": caseID,
		"upload_type":   "docket",
	}
	return c.uploadMultipart(ctx, fields, "filepath_local", "docket.html", []byte(markup))
}

// UploadAttachmentMenu sends a captured attachment-menu page.
func (c *Client) UploadAttachmentMenu(ctx context.Context, court, caseID, markup string) (bool, error) {
	fields := map[string]string{
		"court":         court,
		"pacer_case_id": caseID,
		"upload_type":   "attachment_page",
	}
	return c.uploadMultipart(ctx, fields, "filepath_local", "attachment_menu.html", []byte(markup))
}

// UploadDocument sends a captured document payload.
func (c *Client) UploadDocument(ctx context.Context, court, caseID string, doc DocumentUpload) (bool, error) {
	fields := map[string]string{
		"court":             court,
		"pacer_case_id":     caseID,
		"pacer_doc_id":      doc.DocID,
		"document_number":   doc.DocNumber,
		"attachment_number": doc.AttachmentNumber,
		"acms_document_guid": doc.ACMSID,
		"upload_type":       "pdf",
	}
	filename := doc.Filename
	if filename == "" {
		filename = "document.pdf"
	}
	return c.uploadMultipart(ctx, fields, "filepath_local", filename, doc.Body)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("archive get: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("archive get: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode archive response: %w", err)
	}
	return nil
}

func (c *Client) uploadMultipart(ctx context.Context, fields map[string]string, fileField, filename string, body []byte) (bool, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return false, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	part, err := w.CreateFormFile(fileField, filename)
	if err != nil {
		return false, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(body); err != nil {
		return false, fmt.Errorf("write payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return false, fmt.Errorf("finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/recap/", &buf)
	if err != nil {
		return false, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("archive upload: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok {
		c.logger.Warn("archive rejected upload",
			zap.Int("status", resp.StatusCode),
			zap.String("upload_type", fields["upload_type"]),
		)
	}
	return ok, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Token "+c.cfg.Token)
	}
}
