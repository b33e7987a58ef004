package remote

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

	"github.com/sheetmcp/sheetcore/mutation"
	"github.com/sheetmcp/sheetcore/rangeref"
	"github.com/sheetmcp/sheetcore/toolerr"
)

// HTTPClientConfig configures an HTTPClient.
type HTTPClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client // defaults to http.DefaultClient
	UserAgent  string
	APIKey     string // sent as "Authorization: Bearer <APIKey>"; resolved from a secret reference by the caller
}

// HTTPClient implements Client against a REST-like remote spreadsheet
// service: values read/write/append/clear/batch, document get/create/copy,
// sheet add/delete/copy, and a generic batch-mutation endpoint.
type HTTPClient struct {
	baseURL   string
	http      *http.Client
	userAgent string
	apiKey    string
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient constructs an HTTPClient from config, applying defaults.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		http:      hc,
		userAgent: cfg.UserAgent,
		apiKey:    cfg.APIKey,
	}
}

func (c *HTTPClient) ReadValues(ctx context.Context, doc DocumentHandle, r rangeref.A1Range, opts ReadOptions) (ReadResult, error) {
	q := url.Values{}
	q.Set("range", r.Format())
	if opts.ValueRenderOption != "" {
		q.Set("valueRenderOption", opts.ValueRenderOption)
	}
	if len(opts.FieldMask) > 0 {
		q.Set("fields", strings.Join(opts.FieldMask, ","))
	}

	var body struct {
		Values        [][]any `json:"values"`
		RevisionToken string  `json:"revisionToken"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/documents/%s/values:get", doc), q, nil, &body); err != nil {
		return ReadResult{}, err
	}
	return ReadResult{Range: r, Values: body.Values, RevisionToken: body.RevisionToken}, nil
}

func (c *HTTPClient) ApplyBatch(ctx context.Context, doc DocumentHandle, ops []mutation.Mutation) (BatchResult, error) {
	payload := make([]map[string]any, 0, len(ops))
	for _, op := range ops {
		payload = append(payload, map[string]any{
			"kind":         op.Kind,
			"operationKey": op.OperationKey(),
			"range":        rangeStringOrNil(op.Range),
			"values":       op.Values,
			"fieldMask":    op.FieldMask,
		})
	}

	var body struct {
		Replies []struct {
			OperationKey string         `json:"operationKey"`
			Success      bool           `json:"success"`
			Error        string         `json:"error"`
			Details      map[string]any `json:"details"`
		} `json:"replies"`
		RevisionToken string `json:"revisionToken"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/documents/%s:batchUpdate", doc), nil,
		map[string]any{"requests": payload}, &body); err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{RevisionToken: body.RevisionToken}
	for _, r := range body.Replies {
		reply := MutationReply{OperationKey: r.OperationKey, Success: r.Success, Details: r.Details}
		if r.Error != "" {
			reply.Err = toolerr.New(toolerr.RemoteUnavailable, r.Error)
		}
		result.Replies = append(result.Replies, reply)
	}
	return result, nil
}

func (c *HTTPClient) GetMetadata(ctx context.Context, doc DocumentHandle, fieldMask []string) (DocumentMetadata, error) {
	q := url.Values{}
	if len(fieldMask) > 0 {
		q.Set("fields", strings.Join(fieldMask, ","))
	}
	var meta DocumentMetadata
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/documents/%s", doc), q, nil, &meta); err != nil {
		return DocumentMetadata{}, err
	}
	return meta, nil
}

func (c *HTTPClient) Export(ctx context.Context, doc DocumentHandle) (ExportResult, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/documents/%s:export", doc), nil, nil)
	if err != nil {
		return ExportResult{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return ExportResult{}, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return ExportResult{}, classifyResponse(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ExportResult{}, toolerr.Wrap(toolerr.RemoteUnavailable, err, "reading export body")
	}
	return ExportResult{ContentType: resp.Header.Get("Content-Type"), Data: data}, nil
}

func (c *HTTPClient) Restore(ctx context.Context, doc DocumentHandle, data ExportResult) ([]string, error) {
	var body struct {
		Irrecoverable []string `json:"irrecoverable"`
	}
	req, err := c.newRequest(ctx, http.MethodPost, fmt.Sprintf("/documents/%s:restore", doc), nil, bytes.NewReader(data.Data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", data.ContentType)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, classifyResponse(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && err != io.EOF {
		return nil, toolerr.Wrap(toolerr.RemoteUnavailable, err, "decoding restore response")
	}
	return body.Irrecoverable, nil
}

func (c *HTTPClient) CreateDocument(ctx context.Context, title string) (DocumentHandle, error) {
	var body struct {
		DocumentID string `json:"documentId"`
	}
	if err := c.do(ctx, http.MethodPost, "/documents", nil, map[string]any{"title": title}, &body); err != nil {
		return "", err
	}
	return DocumentHandle(body.DocumentID), nil
}

func (c *HTTPClient) CopyDocument(ctx context.Context, source DocumentHandle, title string) (DocumentHandle, error) {
	var body struct {
		DocumentID string `json:"documentId"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/documents/%s:copy", source), nil,
		map[string]any{"title": title}, &body); err != nil {
		return "", err
	}
	return DocumentHandle(body.DocumentID), nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, toolerr.Wrap(toolerr.InternalError, err, "building remote request")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, reqBody any, out any) error {
	var bodyReader io.Reader
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return toolerr.Wrap(toolerr.InternalError, err, "marshaling request body")
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := c.newRequest(ctx, method, path, query, bodyReader)
	if err != nil {
		return err
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return classifyResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return toolerr.Wrap(toolerr.RemoteUnavailable, err, "decoding remote response")
	}
	return nil
}

func classifyTransportErr(err error) error {
	if errors.Is(err, context.Canceled) {
		return toolerr.Wrap(toolerr.Cancelled, err, "remote request cancelled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return toolerr.Wrap(toolerr.Timeout, err, "remote request timed out")
	}
	return toolerr.Wrap(toolerr.RemoteUnavailable, err, "remote request failed")
}

func classifyResponse(resp *http.Response) error {
	var body struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Message == "" {
		body.Message = resp.Status
	}
	if e := ClassifyStatus(resp.StatusCode, body.Reason, body.Message); e != nil {
		if resp.StatusCode == http.StatusTooManyRequests {
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				e = e.WithDetails(map[string]any{"retryAfterHeader": ra})
			}
		}
		return e
	}
	return toolerr.Newf(toolerr.InternalError, "unexpected success-range status treated as error: %d", resp.StatusCode)
}

func rangeStringOrNil(r *rangeref.A1Range) any {
	if r == nil {
		return nil
	}
	return r.Format()
}
