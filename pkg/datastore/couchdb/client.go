package couchdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	errNotFound = errors.New("couchdb: not found")
	errConflict = errors.New("couchdb: document update conflict")
)

// statusError is a CouchDB error response.
type statusError struct {
	Method string
	Path   string
	Status int
	Err    string `json:"error"`
	Reason string `json:"reason"`
}

func (e *statusError) Error() string {
	return fmt.Sprintf("couchdb: %s %s: %d %s: %s", e.Method, e.Path, e.Status, e.Err, e.Reason)
}

func (e *statusError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return errNotFound
	case http.StatusConflict, http.StatusPreconditionFailed:
		return errConflict
	}
	return nil
}

// client talks to one CouchDB database over its HTTP API.
type client struct {
	http *http.Client
	base *url.URL // server URL, may carry basic auth credentials
	db   string
}

// newClient returns a client whose requests fail after timeout.
func newClient(serverURL *url.URL, database string, timeout time.Duration) *client {
	return &client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		base: serverURL,
		db:   database,
	}
}

// do sends a request to the escaped path below the server URL. body is JSON
// encoded when non-nil; the response is decoded into out when non-nil.
func (c *client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.User = nil
	u.RawPath = strings.TrimSuffix(c.base.EscapedPath(), "/") + path
	unescaped, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return err
	}
	u.Path = unescaped
	u.RawQuery = query.Encode()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.base.User != nil {
		pw, _ := c.base.User.Password()
		req.SetBasicAuth(c.base.User.Username(), pw)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		se := &statusError{Method: method, Path: path, Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(se)
		return se
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) docPath(id string) string {
	return "/" + url.PathEscape(c.db) + "/" + url.PathEscape(id)
}

// ping checks that the server answers.
func (c *client) ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/", nil, nil, nil)
}

// ensureDatabase creates the database unless it exists.
func (c *client) ensureDatabase(ctx context.Context) error {
	err := c.do(ctx, http.MethodPut, "/"+url.PathEscape(c.db), nil, nil, nil)
	if errors.Is(err, errConflict) {
		return nil
	}
	return err
}

func (c *client) get(ctx context.Context, id string, out any) error {
	return c.do(ctx, http.MethodGet, c.docPath(id), nil, nil, out)
}

type putResponse struct {
	OK  bool   `json:"ok"`
	ID  string `json:"id"`
	Rev string `json:"rev"`
}

// put writes doc. The document's _rev field selects create or update.
func (c *client) put(ctx context.Context, id string, doc any) (string, error) {
	var resp putResponse
	if err := c.do(ctx, http.MethodPut, c.docPath(id), nil, doc, &resp); err != nil {
		return "", err
	}
	return resp.Rev, nil
}

func (c *client) delete(ctx context.Context, id, rev string) error {
	return c.do(ctx, http.MethodDelete, c.docPath(id), url.Values{"rev": {rev}}, nil, nil)
}

type findRequest struct {
	Selector map[string]any `json:"selector"`
	Limit    int            `json:"limit"`
	Bookmark string         `json:"bookmark,omitempty"`
}

type findResponse struct {
	Docs     []json.RawMessage `json:"docs"`
	Bookmark string            `json:"bookmark"`
}

const findPageSize = 200

// find runs a Mango query and returns every matching document, following
// bookmarks until a short page is returned.
func (c *client) find(ctx context.Context, selector map[string]any) ([]json.RawMessage, error) {
	var all []json.RawMessage
	req := findRequest{Selector: selector, Limit: findPageSize}
	for {
		var resp findResponse
		if err := c.do(ctx, http.MethodPost, "/"+url.PathEscape(c.db)+"/_find", nil, req, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Docs...)
		if len(resp.Docs) < findPageSize || resp.Bookmark == "" {
			return all, nil
		}
		req.Bookmark = resp.Bookmark
	}
}

type bulkDoc struct {
	ID      string `json:"_id"`
	Rev     string `json:"_rev"`
	Deleted bool   `json:"_deleted"`
}

// deleteAll removes docs in a single _bulk_docs request.
func (c *client) deleteAll(ctx context.Context, docs []bulkDoc) error {
	if len(docs) == 0 {
		return nil
	}
	body := map[string]any{"docs": docs}
	return c.do(ctx, http.MethodPost, "/"+url.PathEscape(c.db)+"/_bulk_docs", nil, body, nil)
}
