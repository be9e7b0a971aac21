// Package client is a typed HTTP client of the portal API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	appportal "github.com/erp/portal/internal/application/portal"
	"github.com/erp/portal/internal/domain/portal"
	"github.com/erp/portal/internal/interfaces/http/dto"
	"github.com/erp/portal/internal/interfaces/http/handler"
)

const apiPrefix = "/api/v1"

// ErrNoToken is returned by calls that need a session before Login.
var ErrNoToken = errors.New("not logged in: run portalctl login first")

// APIError is an error envelope returned by the server.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCode reports whether err is an APIError with code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Client calls the portal API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets a previously issued access token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the access token in use.
func (c *Client) Token() string {
	return c.token
}

// Login opens a session and keeps its token for later calls.
func (c *Client) Login(ctx context.Context, customerID, password string) (*handler.LoginResponse, error) {
	var out handler.LoginResponse
	req := handler.LoginRequest{CustomerID: customerID, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &out); err != nil {
		return nil, err
	}
	c.token = out.Token.AccessToken
	return &out, nil
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

// Profile returns the customer profile and tab states.
func (c *Client) Profile(ctx context.Context) (*handler.ProfileResponse, error) {
	var out handler.ProfileResponse
	if err := c.do(ctx, http.MethodGet, "/portal/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Activate starts loading tab and waits for the load to finish.
func (c *Client) Activate(ctx context.Context, tab portal.Tab) (*appportal.TabView, error) {
	return c.view(ctx, http.MethodPost, tabPath(tab, "activate")+"?wait=true", nil)
}

// Tab returns the current page of a list tab.
func (c *Client) Tab(ctx context.Context, tab portal.Tab) (*appportal.TabView, error) {
	return c.view(ctx, http.MethodGet, tabPath(tab, ""), nil)
}

// Search sets the search term of a list tab.
func (c *Client) Search(ctx context.Context, tab portal.Tab, term string) (*appportal.TabView, error) {
	return c.view(ctx, http.MethodPut, tabPath(tab, "search"), handler.SearchRequest{Term: term})
}

// Sort sorts a list tab by field; the same field again flips direction.
func (c *Client) Sort(ctx context.Context, tab portal.Tab, field string) (*appportal.TabView, error) {
	return c.view(ctx, http.MethodPost, tabPath(tab, "sort"), handler.SortRequest{Field: field})
}

// SetPageSize changes the page size of a list tab.
func (c *Client) SetPageSize(ctx context.Context, tab portal.Tab, size int) (*appportal.TabView, error) {
	return c.view(ctx, http.MethodPut, tabPath(tab, "page-size"), handler.PageSizeRequest{Size: size})
}

// GoToPage jumps a list tab to page.
func (c *Client) GoToPage(ctx context.Context, tab portal.Tab, page int) (*appportal.TabView, error) {
	return c.view(ctx, http.MethodPut, tabPath(tab, "page"), handler.PageRequest{Page: page})
}

// NextPage advances a list tab.
func (c *Client) NextPage(ctx context.Context, tab portal.Tab) (*appportal.TabView, error) {
	return c.view(ctx, http.MethodPost, tabPath(tab, "next"), nil)
}

// PreviousPage moves a list tab back.
func (c *Client) PreviousPage(ctx context.Context, tab portal.Tab) (*appportal.TabView, error) {
	return c.view(ctx, http.MethodPost, tabPath(tab, "prev"), nil)
}

// SetFilter sets or clears a named filter of a list tab.
func (c *Client) SetFilter(ctx context.Context, tab portal.Tab, name, value string) (*appportal.TabView, error) {
	return c.view(ctx, http.MethodPut, tabPath(tab, "filter"), handler.FilterRequest{Name: name, Value: value})
}

// Analytics returns the analytics tab.
func (c *Client) Analytics(ctx context.Context) (*appportal.AnalyticsView, error) {
	var out appportal.AnalyticsView
	if err := c.do(ctx, http.MethodGet, "/portal/analytics", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reload drops all tab data of the workspace.
func (c *Client) Reload(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/portal/reload", nil, nil)
}

// Export downloads the rows of a list tab as csv or xlsx.
func (c *Client) Export(ctx context.Context, tab portal.Tab, format portal.SheetFormat) (portal.Document, error) {
	return c.download(ctx, tabPath(tab, "export")+"?format="+url.QueryEscape(string(format)))
}

// DownloadInvoice downloads the PDF of an invoice.
func (c *Client) DownloadInvoice(ctx context.Context, id string) (portal.Document, error) {
	return c.download(ctx, "/portal/invoices/"+url.PathEscape(id)+"/pdf")
}

func tabPath(tab portal.Tab, action string) string {
	p := "/portal/tabs/" + url.PathEscape(string(tab))
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) view(ctx context.Context, method, path string, body any) (*appportal.TabView, error) {
	var out appportal.TabView
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if !strings.HasPrefix(path, "/auth/login") {
		return nil, ErrNoToken
	}
	return req, nil
}

// do sends a JSON request and decodes the data of the response envelope
// into out, which may be nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	envelope := struct {
		Data any `json:"data"`
	}{Data: out}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) download(ctx context.Context, path string) (portal.Document, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return portal.Document{}, err
	}
	req.Header.Del("Accept")
	resp, err := c.http.Do(req)
	if err != nil {
		return portal.Document{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return portal.Document{}, decodeError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return portal.Document{}, err
	}
	return portal.Document{
		Filename:    attachmentName(resp.Header.Get("Content-Disposition")),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

func decodeError(resp *http.Response) error {
	var envelope dto.Response
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		apiErr.RequestID = envelope.Error.RequestID
	}
	return apiErr
}

func attachmentName(disposition string) string {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
