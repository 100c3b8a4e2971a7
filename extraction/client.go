package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"invoice-ocr-backend/config"
	"invoice-ocr-backend/utils"
)

// Header fields requested from the extraction service. invoiceNumber and
// senderName are the two we persist; the rest feed the raw payload.
var headerFields = []string{
	"invoiceNumber",
	"purchaseOrderNumber",
	"invoiceDate",
	"currency",
	"grossAmount",
	"netAmount",
	"senderName",
	"senderAddress",
	"receiverName",
}

const (
	schemaName   = "SAP_invoice_schema"
	documentType = "invoice"
)

// Job statuses reported by the extraction service.
const (
	statusPending = "PENDING"
	statusRunning = "RUNNING"
	statusDone    = "DONE"
	statusFailed  = "FAILED"
)

// Backoff controls the poll loop. Delays grow by doubling from Initial up
// to MaxDelay; Budget bounds the total wait.
type Backoff struct {
	Initial  time.Duration
	MaxDelay time.Duration
	Budget   time.Duration
}

// DefaultBackoff: 500ms initial, doubling, 5s cap, 60s total.
var DefaultBackoff = Backoff{
	Initial:  500 * time.Millisecond,
	MaxDelay: 5 * time.Second,
	Budget:   60 * time.Second,
}

// Result holds the fields mapped out of a completed extraction job.
type Result struct {
	InvoiceNumber   string
	VendorName      string
	ConfidenceScore float64
	Raw             []byte
}

// Client submits documents to the extraction API and polls the job until a
// terminal outcome.
type Client struct {
	jobsURL string
	tokens  TokenSource
	http    *http.Client
	backoff Backoff
}

func NewClient(cfg config.ExtractionConfig, tokens TokenSource) *Client {
	return &Client{
		jobsURL: strings.TrimRight(cfg.BaseURL, "/") + cfg.RESTPath + "document/jobs",
		tokens:  tokens,
		http:    &http.Client{Timeout: 60 * time.Second},
		backoff: DefaultBackoff,
	}
}

// WithBackoff overrides the poll cadence (used by tests and config).
func (c *Client) WithBackoff(b Backoff) *Client {
	c.backoff = b
	return c
}

// Extract runs the full workflow: token, submit, poll, parse. The caller's
// context cancels in-flight requests and the waits between polls.
func (c *Client) Extract(ctx context.Context, fileName string, data []byte) (*Result, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	jobID, err := c.submit(ctx, token, fileName, data)
	if err != nil {
		return nil, err
	}

	raw, err := c.poll(ctx, token, jobID)
	if err != nil {
		return nil, err
	}

	return parseResult(raw)
}

// submit uploads the document and returns the job identifier.
func (c *Client) submit(ctx context.Context, token, fileName string, data []byte) (string, error) {
	options, err := json.Marshal(map[string]any{
		"extraction": map[string]any{
			"headerFields":   headerFields,
			"lineItemFields": []string{},
		},
		"schemaName":   schemaName,
		"clientId":     "default",
		"documentType": documentType,
		"receivedDate": "",
	})
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("options", string(options)); err != nil {
		return "", err
	}
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.jobsURL, &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return "", &ServiceError{Reason: fmt.Sprintf("document upload failed: %d - %s", resp.StatusCode, msg)}
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &ServiceError{Reason: "decode upload response: " + err.Error()}
	}
	if out.ID == "" {
		return "", &ServiceError{Reason: "no document ID returned from upload"}
	}
	return out.ID, nil
}

// poll checks the job status with exponentially increasing delay until it
// is terminal, the context is canceled, or the budget runs out.
func (c *Client) poll(ctx context.Context, token, jobID string) ([]byte, error) {
	deadline := time.Now().Add(c.backoff.Budget)
	delay := c.backoff.Initial

	for {
		raw, status, jobErr, err := c.checkJob(ctx, token, jobID)
		if err != nil {
			return nil, err
		}

		switch status {
		case statusDone:
			return raw, nil
		case statusFailed:
			if jobErr == "" {
				jobErr = "unknown error"
			}
			return nil, &ServiceError{Reason: "document extraction failed: " + jobErr}
		case statusPending, statusRunning:
			// keep polling
		default:
			return nil, &ServiceError{Reason: "unknown job status: " + status}
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w (%s)", ErrPollTimeout, c.backoff.Budget)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > c.backoff.MaxDelay {
			delay = c.backoff.MaxDelay
		}
	}
}

func (c *Client) checkJob(ctx context.Context, token, jobID string) (raw []byte, status, jobErr string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jobsURL+"/"+jobID, nil)
	if err != nil {
		return nil, "", "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", "", fmt.Errorf("poll job: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", "", fmt.Errorf("read poll response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", "", &ServiceError{Reason: fmt.Sprintf("polling failed: %d - %s", resp.StatusCode, body)}
	}

	var out struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, "", "", &ServiceError{Reason: "decode poll response: " + err.Error()}
	}
	return body, out.Status, out.Error, nil
}

// parseResult maps the completed job payload into a Result. The confidence
// score is the average of all per-field confidences, rounded to 2 decimals.
func parseResult(raw []byte) (*Result, error) {
	var payload struct {
		Extraction struct {
			HeaderFields []struct {
				Name       string  `json:"name"`
				Value      any     `json:"value"`
				Confidence float64 `json:"confidence"`
			} `json:"headerFields"`
		} `json:"extraction"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &ServiceError{Reason: "parse extraction results: " + err.Error()}
	}

	res := &Result{Raw: raw}
	var confidences []float64
	for _, f := range payload.Extraction.HeaderFields {
		if f.Confidence > 0 {
			confidences = append(confidences, f.Confidence)
		}
		if f.Value == nil {
			continue
		}
		switch f.Name {
		case "invoiceNumber":
			res.InvoiceNumber = fieldString(f.Value)
		case "senderName":
			res.VendorName = fieldString(f.Value)
		}
	}

	if len(confidences) > 0 {
		var sum float64
		for _, c := range confidences {
			sum += c
		}
		res.ConfidenceScore = utils.Round2(sum / float64(len(confidences)))
	}

	if res.InvoiceNumber == "" {
		return nil, &ServiceError{Reason: "invoice number not found in extraction results"}
	}
	if res.VendorName == "" {
		return nil, &ServiceError{Reason: "vendor name not found in extraction results"}
	}
	return res, nil
}

func fieldString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
