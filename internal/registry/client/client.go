// Package client calls a registry server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ledgerreg/internal/registry/models"
	"ledgerreg/pkg/domain"
	dErrors "ledgerreg/pkg/domain-errors"
	"ledgerreg/pkg/platform/httputil"
)

// Client talks to one registry server. Token, when set, is sent as a bearer
// token on every request.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Error is a non-2xx reply from the server.
type Error struct {
	Status int
	httputil.ErrorResponse
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("registry returned %d %s", e.Status, e.ErrorResponse.Error)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if e.Description != "" {
		msg += ": " + e.Description
	}
	return msg
}

// RegisterRequest is the registration body for any kind.
type RegisterRequest struct {
	ID          string             `json:"id"`
	Owner       domain.Account     `json:"owner"`
	ContentHash domain.ContentHash `json:"content_hash"`
	Version     string             `json:"version,omitempty"`
	Properties  any                `json:"properties,omitempty"`
}

// Register submits a record of kind and returns the admitted id.
func (c *Client) Register(ctx context.Context, kind models.Kind, req RegisterRequest) (models.RecordID, error) {
	var resp struct {
		ID models.RecordID `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, kindPath(kind), req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Get fetches the record registered under id as raw JSON.
func (c *Client) Get(ctx context.Context, kind models.Kind, id string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.do(ctx, http.MethodGet, kindPath(kind)+"/"+url.PathEscape(id), nil, &raw)
	return raw, err
}

func (c *Client) OwnerOf(ctx context.Context, kind models.Kind, id string) (domain.Account, error) {
	var resp struct {
		Owner domain.Account `json:"owner"`
	}
	err := c.do(ctx, http.MethodGet, kindPath(kind)+"/"+url.PathEscape(id)+"/owner", nil, &resp)
	return resp.Owner, err
}

func (c *Client) ListByOwner(ctx context.Context, kind models.Kind, owner domain.Account) ([]models.RecordID, error) {
	return c.listIDs(ctx, kindPath(kind)+"/by-owner/"+owner.String())
}

func (c *Client) ListByHash(ctx context.Context, kind models.Kind, hash domain.ContentHash) ([]models.RecordID, error) {
	return c.listIDs(ctx, kindPath(kind)+"/by-hash/"+hash.String())
}

func (c *Client) listIDs(ctx context.Context, path string) ([]models.RecordID, error) {
	var resp struct {
		IDs []models.RecordID `json:"ids"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.IDs, nil
}

func kindPath(kind models.Kind) string {
	return "/v1/" + string(kind) + "s"
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeBadRequest, "encode request")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr.ErrorResponse)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
