// Package airtable is a thin client over the Airtable REST and metadata APIs.
package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"taskrelay/internal/httpclient"
)

const (
	// DefaultBaseURL is the Airtable API root; metadata lives under /meta.
	DefaultBaseURL = "https://api.airtable.com/v0"
	// RequestsPerSecond is Airtable's per-base rate limit.
	RequestsPerSecond = 5
	// batchSize is the most records one create or delete call accepts.
	batchSize = 10
)

// Record is a normalized Airtable row.
type Record struct {
	ID          string         `json:"id"`
	Fields      map[string]any `json:"fields"`
	CreatedTime string         `json:"created_time"`
}

type apiRecord struct {
	ID          string         `json:"id"`
	Fields      map[string]any `json:"fields"`
	CreatedTime string         `json:"createdTime"`
}

func (r apiRecord) normalize() Record {
	fields := r.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	return Record{ID: r.ID, Fields: fields, CreatedTime: r.CreatedTime}
}

// Deleted reports one deleted record.
type Deleted struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// Table is the metadata of one table. Unknown attributes are kept verbatim
// so the CLI can print the full schema.
type Table map[string]any

// ID returns the table's id attribute.
func (t Table) ID() string {
	s, _ := t["id"].(string)
	return s
}

// Name returns the table's name attribute.
func (t Table) Name() string {
	s, _ := t["name"].(string)
	return s
}

// Sort orders list results by one field.
type Sort struct {
	Field     string
	Direction string // asc or desc
}

// ParseSort parses FIELD:DIR.
func ParseSort(s string) (Sort, error) {
	field, dir, ok := strings.Cut(s, ":")
	if !ok {
		return Sort{}, fmt.Errorf("sort must be FIELD:DIR")
	}
	return Sort{Field: field, Direction: dir}, nil
}

// ListOptions filters and orders ListRecords.
type ListOptions struct {
	Formula    string
	View       string
	MaxRecords int
	Sort       []Sort
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.Formula != "" {
		q.Set("filterByFormula", o.Formula)
	}
	if o.View != "" {
		q.Set("view", o.View)
	}
	if o.MaxRecords > 0 {
		q.Set("maxRecords", strconv.Itoa(o.MaxRecords))
	}
	for i, s := range o.Sort {
		q.Set(fmt.Sprintf("sort[%d][field]", i), s.Field)
		q.Set(fmt.Sprintf("sort[%d][direction]", i), s.Direction)
	}
	return q
}

// Client talks to Airtable with one personal access token.
type Client struct {
	http *httpclient.Client
}

// Option customizes a Client.
type Option func(*httpclient.Config)

// WithBaseURL points the client at another API root.
func WithBaseURL(base string) Option {
	return func(cfg *httpclient.Config) { cfg.BaseURL = base }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *httpclient.Config) { cfg.HTTPClient = c }
}

// WithRequestsPerSecond overrides the client's rate limit; 0 disables it.
func WithRequestsPerSecond(n int) Option {
	return func(cfg *httpclient.Config) { cfg.Limiter = httpclient.PerSecond(n) }
}

// New creates a Client authenticated with token.
func New(token string, opts ...Option) *Client {
	cfg := httpclient.Config{
		Service:      "Airtable",
		BaseURL:      DefaultBaseURL,
		Header:       http.Header{"Authorization": []string{"Bearer " + token}},
		Limiter:      httpclient.PerSecond(RequestsPerSecond),
		ErrorMessage: errorMessage,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{http: httpclient.New(cfg)}
}

// ListBases returns every base the token can see.
func (c *Client) ListBases(ctx context.Context) ([]map[string]any, error) {
	var out struct {
		Bases []map[string]any `json:"bases"`
	}
	if err := c.get(ctx, "/meta/bases", nil, &out); err != nil {
		return nil, err
	}
	if out.Bases == nil {
		out.Bases = []map[string]any{}
	}
	return out.Bases, nil
}

// ListTables returns the schema of every table in a base.
func (c *Client) ListTables(ctx context.Context, baseID string) ([]Table, error) {
	var out struct {
		Tables []Table `json:"tables"`
	}
	if err := c.get(ctx, tablesPath(baseID), nil, &out); err != nil {
		return nil, err
	}
	if out.Tables == nil {
		out.Tables = []Table{}
	}
	return out.Tables, nil
}

// FindTable looks a table up by exact name.
func (c *Client) FindTable(ctx context.Context, baseID, name string) (Table, error) {
	tables, err := c.ListTables(ctx, baseID)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		if t.Name() == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("table not found: %s", name)
}

// CreateTable creates a table with the given field schema.
func (c *Client) CreateTable(ctx context.Context, baseID, name string, fields []any) (Table, error) {
	var out Table
	err := c.http.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   tablesPath(baseID),
		Body:   map[string]any{"name": name, "fields": fields},
	}, &out)
	return out, err
}

// AddField adds a field to the named table.
func (c *Client) AddField(ctx context.Context, baseID, tableName string, field map[string]any) (map[string]any, error) {
	table, err := c.FindTable(ctx, baseID, tableName)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	err = c.http.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   tablesPath(baseID) + "/" + url.PathEscape(table.ID()) + "/fields",
		Body:   field,
	}, &out)
	return out, err
}

// ListRecords returns every matching record, following offset pagination.
func (c *Client) ListRecords(ctx context.Context, baseID, table string, opts ListOptions) ([]Record, error) {
	query := opts.query()
	records := []Record{}
	for {
		var page struct {
			Records []apiRecord `json:"records"`
			Offset  string      `json:"offset"`
		}
		if err := c.get(ctx, recordsPath(baseID, table), query, &page); err != nil {
			return nil, err
		}
		for _, r := range page.Records {
			records = append(records, r.normalize())
		}
		if page.Offset == "" {
			return records, nil
		}
		query.Set("offset", page.Offset)
	}
}

// GetRecord fetches one record by ID.
func (c *Client) GetRecord(ctx context.Context, baseID, table, id string) (Record, error) {
	var r apiRecord
	if err := c.get(ctx, recordsPath(baseID, table)+"/"+url.PathEscape(id), nil, &r); err != nil {
		return Record{}, err
	}
	return r.normalize(), nil
}

// CreateRecords creates records in batches, letting Airtable coerce values.
func (c *Client) CreateRecords(ctx context.Context, baseID, table string, fields []map[string]any) ([]Record, error) {
	created := []Record{}
	for _, chunk := range chunks(fields, batchSize) {
		body := struct {
			Records  []map[string]any `json:"records"`
			Typecast bool             `json:"typecast"`
		}{Typecast: true}
		for _, f := range chunk {
			body.Records = append(body.Records, map[string]any{"fields": f})
		}

		var out struct {
			Records []apiRecord `json:"records"`
		}
		err := c.http.Do(ctx, httpclient.Request{
			Method: http.MethodPost,
			Path:   recordsPath(baseID, table),
			Body:   body,
		}, &out)
		if err != nil {
			return created, err
		}
		for _, r := range out.Records {
			created = append(created, r.normalize())
		}
	}
	return created, nil
}

// UpdateRecord patches the given fields of one record.
func (c *Client) UpdateRecord(ctx context.Context, baseID, table, id string, fields map[string]any) (Record, error) {
	var r apiRecord
	err := c.http.Do(ctx, httpclient.Request{
		Method: http.MethodPatch,
		Path:   recordsPath(baseID, table) + "/" + url.PathEscape(id),
		Body:   map[string]any{"fields": fields, "typecast": true},
	}, &r)
	if err != nil {
		return Record{}, err
	}
	return r.normalize(), nil
}

// DeleteRecords deletes records by ID in batches.
func (c *Client) DeleteRecords(ctx context.Context, baseID, table string, ids []string) ([]Deleted, error) {
	deleted := []Deleted{}
	for _, chunk := range chunks(ids, batchSize) {
		var out struct {
			Records []Deleted `json:"records"`
		}
		err := c.http.Do(ctx, httpclient.Request{
			Method: http.MethodDelete,
			Path:   recordsPath(baseID, table),
			Query:  url.Values{"records[]": chunk},
		}, &out)
		if err != nil {
			return deleted, err
		}
		deleted = append(deleted, out.Records...)
	}
	return deleted, nil
}

// FindRecord returns the first record whose field equals value, or nil.
func (c *Client) FindRecord(ctx context.Context, baseID, table, field, value string) (*Record, error) {
	var page struct {
		Records []apiRecord `json:"records"`
	}
	query := url.Values{
		"filterByFormula": []string{FormatFormula(field, value)},
		"maxRecords":      []string{"1"},
	}
	if err := c.get(ctx, recordsPath(baseID, table), query, &page); err != nil {
		return nil, err
	}
	if len(page.Records) == 0 {
		return nil, nil
	}
	r := page.Records[0].normalize()
	return &r, nil
}

// FormatFormula builds an equality formula. Booleans and numbers are
// compared unquoted; anything else as a single-quoted string.
func FormatFormula(field, value string) string {
	lower := strings.ToLower(value)
	if lower == "true" || lower == "false" {
		return fmt.Sprintf("{%s} = %s", field, lower)
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return fmt.Sprintf("{%s} = %s", field, value)
	}
	return fmt.Sprintf("{%s} = '%s'", field, strings.ReplaceAll(value, "'", `\'`))
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.http.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func tablesPath(baseID string) string {
	return "/meta/bases/" + url.PathEscape(baseID) + "/tables"
}

func recordsPath(baseID, table string) string {
	return "/" + url.PathEscape(baseID) + "/" + url.PathEscape(table)
}

func chunks[T any](items []T, size int) [][]T {
	var out [][]T
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

// errorMessage renders Airtable's {"error": {"type", "message"}} bodies as
// "type - message".
func errorMessage(body []byte) string {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Error) > 0 {
		var detail struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}
		if json.Unmarshal(payload.Error, &detail) == nil {
			switch {
			case detail.Type != "" && detail.Message != "":
				return detail.Type + " - " + detail.Message
			case detail.Message != "":
				return detail.Message
			}
		}
		var text string
		if json.Unmarshal(payload.Error, &text) == nil && text != "" {
			return text
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return "Unknown error"
}
