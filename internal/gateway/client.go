// Package gateway is the HTTP client for the remote Vibio API. It owns
// request plumbing (JSON and multipart encoding, bearer tokens, tracing)
// and classifies failures into the application error taxonomy.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"vibio/internal/models"
	"vibio/internal/observability"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel/attribute"
)

// TokenSource yields the current auth token, or the empty string when the
// client is not logged in.
type TokenSource interface {
	Token() (string, error)
}

// TokenSourceFunc adapts a function to the TokenSource interface.
type TokenSourceFunc func() (string, error)

func (f TokenSourceFunc) Token() (string, error) { return f() }

// Client performs requests against the remote API. All methods are safe for
// concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenSource
	log     *observability.GatewayLogger
}

// NewClient creates a Client for the given base URL. tokens may be nil for
// an unauthenticated client.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("gateway: base URL %q is not absolute", baseURL)
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		log:     observability.NewGatewayLogger(),
	}, nil
}

// serverEnvelope is the union of the API's failure body shapes.
type serverEnvelope struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors"`
}

func (e *serverEnvelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// bearerToken returns the current token after a client-side expiry check.
// An expired token is rejected before the request leaves the device.
func (c *Client) bearerToken() (string, error) {
	if c.tokens == nil {
		return "", nil
	}
	token, err := c.tokens.Token()
	if err != nil || token == "" {
		return "", err
	}
	// Expiry inspection only; signature verification is the server's job.
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err == nil {
		if exp, expErr := parsed.Claims.GetExpirationTime(); expErr == nil && exp != nil && exp.Before(time.Now()) {
			return "", models.NewUnauthorizedError("Session expired, please log in again")
		}
	}
	return token, nil
}

// do issues a request with an optional JSON body and decodes a 2xx response
// into out (when non-nil). Non-2xx responses and transport failures are
// classified per the error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return models.NewInternalError(err)
		}
		reader = bytes.NewReader(encoded)
	}
	return c.doRaw(ctx, method, path, reader, "application/json", out)
}

// doRaw issues a request with a pre-encoded body.
func (c *Client) doRaw(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	ctx, span := observability.TraceGatewayCall(ctx, method, path)
	defer span.End()

	target := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return models.NewInternalError(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	token, err := c.bearerToken()
	if err != nil {
		span.SetError(err)
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.log.LogRequest(ctx, method, path)
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.LogError(ctx, method, path, err)
		span.SetError(err)
		return models.NewRequestError(err)
	}
	defer resp.Body.Close()
	c.log.LogResponse(ctx, method, path, resp.StatusCode)
	span.AddAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		appErr := classifyFailure(resp)
		span.SetError(appErr)
		return appErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return models.NewRequestError(fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

// doStatus issues a request whose success body is the generic status
// envelope, treating status != success as a server-reported failure.
func (c *Client) doStatus(ctx context.Context, method, path string, body interface{}) error {
	var status models.StatusResponse
	if err := c.do(ctx, method, path, body, &status); err != nil {
		return err
	}
	if !status.OK() {
		return models.NewServerError(status.Message, nil)
	}
	return nil
}

// classifyFailure turns a non-2xx response into an AppError.
func classifyFailure(resp *http.Response) *models.AppError {
	var envelope serverEnvelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = json.Unmarshal(raw, &envelope)

	if resp.StatusCode == http.StatusUnauthorized {
		msg := envelope.message()
		if msg == "" {
			msg = "Unauthorized"
		}
		return models.NewUnauthorizedError(msg)
	}
	msg := envelope.message()
	if msg == "" {
		msg = fmt.Sprintf("Request rejected with status %d", resp.StatusCode)
	}
	return models.NewServerError(msg, envelope.Errors)
}

// multipartBody assembles a multipart form from fields plus an optional file
// part. It returns the encoded body and its content type.
func multipartBody(fields map[string]string, fileField, fileName string, file io.Reader) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if file != nil {
		if fileName == "" {
			fileName = "upload"
		}
		part, err := writer.CreateFormFile(fileField, fileName)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, file); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}
