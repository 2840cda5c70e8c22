package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/edostavka/backend/pkg/config"
	pkgerrors "github.com/edostavka/backend/pkg/errors"
	"github.com/edostavka/backend/pkg/logger"
)

// Airtable rejects write batches above ten records.
const batchLimit = 10

var (
	errBaseIDRequired = errors.New("airtable base id is required")
	errAPIKeyRequired = errors.New("airtable api key is required")
	errLoggerRequired = errors.New("airtable logger is required")
)

// Client talks to one Airtable base with centralized auth, retry and
// error mapping.
type Client struct {
	httpClient *http.Client
	baseURL    string
	baseID     string
	apiKey     string
	retries    uint64
	retryDelay retry.Backoff
	logger     *logger.Logger
}

// NewClient validates the credentials and builds a base-scoped client.
func NewClient(cfg config.AirtableConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseID := strings.TrimSpace(cfg.BaseID)
	if baseID == "" {
		return nil, errBaseIDRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.airtable.com/v0"
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    baseURL,
		baseID:     baseID,
		apiKey:     apiKey,
		retries:    cfg.ReadRetries,
		retryDelay: retry.NewConstant(cfg.ReadRetryDelay),
		logger:     logg,
	}, nil
}

// Table scopes operations to a single table of the base.
func (c *Client) Table(name string) *Table {
	return &Table{client: c, name: name}
}

type Table struct {
	client *Client
	name   string
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// List fetches records matching opts, following pagination offsets
// until either the result set or MaxRecords is exhausted.
func (t *Table) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	var records []Record
	offset := ""
	for {
		query := url.Values{}
		if opts.Filter != "" {
			query.Set("filterByFormula", opts.Filter)
		}
		if opts.SortField != "" {
			query.Set("sort[0][field]", opts.SortField)
			direction := "asc"
			if opts.SortDesc {
				direction = "desc"
			}
			query.Set("sort[0][direction]", direction)
		}
		if opts.MaxRecords > 0 {
			query.Set("maxRecords", strconv.Itoa(opts.MaxRecords))
		}
		for _, field := range opts.Fields {
			query.Add("fields[]", field)
		}
		if offset != "" {
			query.Set("offset", offset)
		}

		var page listResponse
		if err := t.client.do(ctx, http.MethodGet, t.path("")+"?"+query.Encode(), nil, &page); err != nil {
			return nil, err
		}
		records = append(records, page.Records...)
		if page.Offset == "" {
			break
		}
		if opts.MaxRecords > 0 && len(records) >= opts.MaxRecords {
			break
		}
		offset = page.Offset
	}
	if opts.MaxRecords > 0 && len(records) > opts.MaxRecords {
		records = records[:opts.MaxRecords]
	}
	return records, nil
}

// First returns the first record matching opts, or CodeNotFound.
func (t *Table) First(ctx context.Context, opts ListOptions) (*Record, error) {
	opts.MaxRecords = 1
	records, err := t.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no matching record in %s", t.name))
	}
	return &records[0], nil
}

// Get fetches a record by its internal ID.
func (t *Table) Get(ctx context.Context, id string) (*Record, error) {
	var record Record
	if err := t.client.do(ctx, http.MethodGet, t.path(id), nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a single record and returns it with its new ID.
func (t *Table) Create(ctx context.Context, fields Fields) (*Record, error) {
	var record Record
	if err := t.client.do(ctx, http.MethodPost, t.path(""), recordEnvelope{Fields: fields}, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// CreateRecords inserts up to batchLimit records in one call.
func (t *Table) CreateRecords(ctx context.Context, fieldsList []Fields) ([]Record, error) {
	if len(fieldsList) == 0 {
		return nil, nil
	}
	if len(fieldsList) > batchLimit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d records per create", batchLimit))
	}
	envelope := recordsEnvelope{Records: make([]recordEnvelope, 0, len(fieldsList))}
	for _, fields := range fieldsList {
		envelope.Records = append(envelope.Records, recordEnvelope{Fields: fields})
	}
	var resp listResponse
	if err := t.client.do(ctx, http.MethodPost, t.path(""), envelope, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// Update patches the fields of a single record.
func (t *Table) Update(ctx context.Context, id string, fields Fields) (*Record, error) {
	var record Record
	if err := t.client.do(ctx, http.MethodPatch, t.path(id), recordEnvelope{Fields: fields}, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// BatchUpdate patches many records, chunked to the API's batch limit.
// Chunks keep going after a failure; the errors are combined.
func (t *Table) BatchUpdate(ctx context.Context, updates []RecordUpdate) error {
	var combined error
	for start := 0; start < len(updates); start += batchLimit {
		end := start + batchLimit
		if end > len(updates) {
			end = len(updates)
		}
		envelope := updateEnvelope{Records: updates[start:end]}
		var resp listResponse
		if err := t.client.do(ctx, http.MethodPatch, t.path(""), envelope, &resp); err != nil {
			combined = multierr.Append(combined, err)
		}
	}
	return combined
}

func (t *Table) path(recordID string) string {
	p := url.PathEscape(t.name)
	if recordID != "" {
		p += "/" + url.PathEscape(recordID)
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding airtable request")
		}
	}

	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, c.baseID, path)

	run := func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building airtable request")
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling airtable")
			if method == http.MethodGet {
				return retry.RetryableError(wrapped)
			}
			return wrapped
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			apiErr := pkgerrors.New(codeForStatus(resp.StatusCode), apiErrorMessage(resp.StatusCode, raw))
			if method == http.MethodGet && resp.StatusCode >= 500 {
				return retry.RetryableError(apiErr)
			}
			return apiErr
		}

		if dest == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding airtable response")
		}
		return nil
	}

	var err error
	if method == http.MethodGet {
		err = retry.Do(ctx, retry.WithMaxRetries(c.retries, c.retryDelay), run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		c.logger.Error(c.logger.WithFields(ctx, map[string]any{
			"method": method,
			"path":   path,
		}), "airtable request failed", err)
	}
	return err
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.CodeUnauthorized
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeDependency
	}
}

func apiErrorMessage(status int, body []byte) string {
	var payload struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return fmt.Sprintf("airtable: %s (%d)", payload.Error.Message, status)
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("airtable: status %d", status)
	}
	return fmt.Sprintf("airtable: status %d: %s", status, trimmed)
}
