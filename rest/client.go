// Copyright 2026 The Govisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gdamore/topovisor/render"
)

// ReportError is returned by Client.Report when the server could not
// assemble a report.  It carries the server's error document.
type ReportError struct {
	Code int
	Doc  render.ErrorDocument
}

func (e *ReportError) Error() string {
	return e.Doc.Error
}

type Client struct {
	user   string // HTTP Basic-Auth
	pass   string
	base   string // URI to root of tree on server
	auth   bool
	client *http.Client
}

func (c *Client) SetAuth(user string, pass string) {
	c.user = user
	c.pass = pass
	c.auth = true
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.base, "/") + path
}

// get issues an HTTP GET.  If etag is not empty it is sent as
// If-None-Match, and a 304 answer is reported by returning a nil
// response with no error.  The caller must close the body of a non-nil
// response.
func (c *Client) get(ctx context.Context, url string, etag string, accept string) (*http.Response, error) {
	return c.do(ctx, "GET", url, etag, accept)
}

func (c *Client) do(ctx context.Context, method string, url string, etag string, accept string) (*http.Response, error) {
	req, e := http.NewRequestWithContext(ctx, method, url, nil)
	if e != nil {
		return nil, e
	}
	if c.auth {
		req.SetBasicAuth(c.user, c.pass)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	res, e := c.client.Do(req)
	if e != nil {
		return nil, e
	}
	if res.StatusCode == http.StatusNotModified {
		res.Body.Close()
		return nil, nil
	}
	return res, nil
}

// statusError turns a failed response into an error, using the JSON
// error body when the server sent one.
func statusError(res *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 64*1024))
	e := &Error{}
	if json.Unmarshal(body, e) == nil && e.Message != "" {
		e.Code = res.StatusCode
		return e
	}
	return &Error{Code: res.StatusCode, Message: res.Status}
}

// Report fetches the structured report.
func (c *Client) Report(ctx context.Context) (*render.Document, error) {
	res, e := c.get(ctx, c.url("/processes?format=json"), "", mimeJson)
	if e != nil {
		return nil, e
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		doc := &render.Document{}
		if e := json.NewDecoder(res.Body).Decode(doc); e != nil {
			return nil, e
		}
		return doc, nil
	case http.StatusInternalServerError:
		re := &ReportError{Code: res.StatusCode}
		if e := json.NewDecoder(res.Body).Decode(&re.Doc); e == nil && re.Doc.Error != "" {
			return nil, re
		}
		return nil, &Error{Code: res.StatusCode, Message: res.Status}
	default:
		return nil, statusError(res)
	}
}

// Text fetches the plain text rendering of the report.
func (c *Client) Text(ctx context.Context) (string, error) {
	res, e := c.get(ctx, c.url("/processes?format=text"), "", mimeText)
	if e != nil {
		return "", e
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", statusError(res)
	}
	b, e := io.ReadAll(res.Body)
	return string(b), e
}

// Log fetches the background task log.  If last is not nil and the log
// has not changed since it was fetched, last is returned as is.
func (c *Client) Log(ctx context.Context, last *LogInfo) (*LogInfo, error) {
	etag := ""
	if last != nil {
		etag = last.Etag
	}
	res, e := c.get(ctx, c.url("/log"), etag, mimeJson)
	if e != nil {
		return nil, e
	}
	if res == nil {
		return last, nil
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, statusError(res)
	}
	v := &LogInfo{Etag: res.Header.Get("Etag")}
	if e := json.NewDecoder(res.Body).Decode(&v.Records); e != nil {
		return nil, e
	}
	return v, nil
}

// ClearLog empties the background task log.  The server only permits
// this when it requires credentials.
func (c *Client) ClearLog(ctx context.Context) error {
	res, e := c.do(ctx, "DELETE", c.url("/log"), "", mimeJson)
	if e != nil {
		return e
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusNoContent {
		return statusError(res)
	}
	return nil
}

// Health reports the server's health document.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	res, e := c.get(ctx, c.url("/health"), "", mimeJson)
	if e != nil {
		return nil, e
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, statusError(res)
	}
	v := &Health{}
	if e := json.NewDecoder(res.Body).Decode(v); e != nil {
		return nil, e
	}
	return v, nil
}

// NewClient returns a Client handle.  The transport maybe nil to use
// a default transport, but it may also be adjusted to support additional
// options such as TLS.  baseURI is the base URL to use.
func NewClient(t http.RoundTripper, baseURI string) *Client {
	if t == nil {
		t = http.DefaultTransport
	}
	return &Client{
		base:   baseURI,
		client: &http.Client{Transport: t},
	}
}
