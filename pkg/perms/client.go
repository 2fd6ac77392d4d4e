// Package perms is a thin client for the external permission service. Only
// the two administrative calls the CLI needs are covered: writing a schema
// and replaying relationship tuples. Authorisation decisions never happen in
// this codebase.
package perms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Tuple is one subject-relation-entity permission record.
type Tuple struct {
	Entity   string `json:"entity"`
	Relation string `json:"relation"`
	Subject  string `json:"subject"`
}

// ParseTuples decodes a JSON array of tuples, rejecting malformed entries.
func ParseTuples(data []byte) ([]Tuple, error) {
	var tuples []Tuple
	if err := json.Unmarshal(data, &tuples); err != nil {
		return nil, fmt.Errorf("parse permission tuples: %w", err)
	}
	for i, t := range tuples {
		if t.Entity == "" || t.Relation == "" || t.Subject == "" {
			return nil, fmt.Errorf("permission tuple %d is incomplete", i)
		}
	}
	return tuples, nil
}

// Client talks to one tenant of the permission service.
type Client struct {
	host   string
	tenant string
	hc     *http.Client
}

func NewClient(host, tenant string) *Client {
	return &Client{
		host:   host,
		tenant: tenant,
		hc:     &http.Client{Timeout: 10 * time.Second},
	}
}

// WriteSchema replaces the tenant's permission schema and returns the new
// schema version.
func (c *Client) WriteSchema(ctx context.Context, schema string) (string, error) {
	var resp struct {
		SchemaVersion string `json:"schema_version"`
	}
	err := c.post(ctx, fmt.Sprintf("/v1/tenants/%s/schemas/write", c.tenant),
		map[string]string{"schema": schema}, &resp)
	if err != nil {
		return "", err
	}
	if resp.SchemaVersion == "" {
		return "", fmt.Errorf("permission service returned no schema version")
	}
	return resp.SchemaVersion, nil
}

// WriteTuples records a batch of relationship tuples under the current
// schema.
func (c *Client) WriteTuples(ctx context.Context, tuples []Tuple) error {
	return c.post(ctx, fmt.Sprintf("/v1/tenants/%s/data/write", c.tenant),
		map[string]any{"tuples": tuples}, nil)
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("permission service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("permission service returned %d: %s", resp.StatusCode, detail)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
