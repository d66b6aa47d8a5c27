package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/entities"
)

// upper limit for provider response bodies
const maxBodySize = 16 << 20

type Options struct {
	BaseURL     string
	APIKeys     []string
	BearerToken string
	// Timeout bounds a single request when no HTTPClient is given. The scheduler sets its own
	// deadline on every request context.
	Timeout    time.Duration
	HTTPClient *http.Client
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (o Options) apiKey() string {
	if len(o.APIKeys) == 0 {
		return ""
	}
	return o.APIKeys[0]
}

type jsonClient struct {
	client *http.Client
}

func (c *jsonClient) getJSON(ctx context.Context, url string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	return c.do(req, header, out)
}

func (c *jsonClient) postJSON(ctx context.Context, url string, header http.Header, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshalling request body")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, header, out)
}

func (c *jsonClient) do(req *http.Request, header http.Header, out any) error {
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return entities.Transient(errors.Wrap(err, "sending request"))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return entities.Transient(errors.Wrap(err, "reading response body"))
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return statusError(resp.StatusCode, body)
	}

	err = json.Unmarshal(body, out)
	if err != nil {
		return entities.Malformed(errors.Wrapf(err, "decoding response (body: %s)", snippet(body)))
	}
	return nil
}

// statusError maps an http status to the fetch error taxonomy. Throttling, timeouts and server
// errors are worth another attempt, other client errors are not.
func statusError(code int, body []byte) error {
	err := errors.Errorf("http status %d: %s", code, snippet(body))
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError {
		return entities.Transient(err)
	}
	return err
}

func snippet(body []byte) string {
	return string(body[:min(200, len(body))])
}
