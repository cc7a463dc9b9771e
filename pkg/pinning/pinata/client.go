package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/soundlease/soundlease-backend/pkg/config"
	"github.com/soundlease/soundlease-backend/pkg/logger"
)

const (
	pinFilePath  = "/pinning/pinFileToIPFS"
	pinJSONPath  = "/pinning/pinJSONToIPFS"
	testAuthPath = "/data/testAuthentication"
)

// Client talks to the Pinata pinning API over plain HTTP. The vendor SDK is
// skipped on purpose; the surface we need is three endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	gatewayURL string
	jwt        string
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

type pinMetadata struct {
	Name string `json:"name"`
}

type pinOptions struct {
	CIDVersion int `json:"cidVersion"`
}

func NewClient(cfg config.PinataConfig, logg *logger.Logger) (*Client, error) {
	if cfg.JWT == "" {
		return nil, errors.New("pinata jwt is required")
	}
	client := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		gatewayURL: strings.TrimRight(cfg.GatewayURL, "/"),
		jwt:        cfg.JWT,
	}
	if logg != nil {
		logg.Info(context.Background(), "pinata client initialized")
	}
	return client, nil
}

// PinFile uploads a binary payload and returns the resulting content
// identifier. Failures propagate; issuance cannot continue without the CID.
func (c *Client) PinFile(ctx context.Context, name, contentType string, payload io.Reader) (string, error) {
	if c == nil {
		return "", errors.New("pinata client not initialized")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreatePart(fileHeader(name, contentType))
	if err != nil {
		return "", fmt.Errorf("creating multipart payload: %w", err)
	}
	if _, err := io.Copy(part, payload); err != nil {
		return "", fmt.Errorf("copying file payload: %w", err)
	}

	meta, err := json.Marshal(pinMetadata{Name: name})
	if err != nil {
		return "", fmt.Errorf("encoding pin metadata: %w", err)
	}
	if err := writer.WriteField("pinataMetadata", string(meta)); err != nil {
		return "", fmt.Errorf("writing pin metadata: %w", err)
	}

	opts, err := json.Marshal(pinOptions{CIDVersion: 0})
	if err != nil {
		return "", fmt.Errorf("encoding pin options: %w", err)
	}
	if err := writer.WriteField("pinataOptions", string(opts)); err != nil {
		return "", fmt.Errorf("writing pin options: %w", err)
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("closing multipart payload: %w", err)
	}

	return c.pin(ctx, pinFilePath, writer.FormDataContentType(), &body)
}

// PinJSON uploads an arbitrary JSON document and returns its content
// identifier.
func (c *Client) PinJSON(ctx context.Context, name string, content any) (string, error) {
	if c == nil {
		return "", errors.New("pinata client not initialized")
	}

	payload := struct {
		PinataOptions  pinOptions  `json:"pinataOptions"`
		PinataMetadata pinMetadata `json:"pinataMetadata"`
		PinataContent  any         `json:"pinataContent"`
	}{
		PinataOptions:  pinOptions{CIDVersion: 0},
		PinataMetadata: pinMetadata{Name: name},
		PinataContent:  content,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding json pin payload: %w", err)
	}

	return c.pin(ctx, pinJSONPath, "application/json", bytes.NewReader(body))
}

func (c *Client) pin(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return "", fmt.Errorf("building pin request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.jwt)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling pinning api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("pinning api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding pin response: %w", err)
	}
	if parsed.IpfsHash == "" {
		return "", errors.New("pinning api returned an empty content identifier")
	}
	return parsed.IpfsHash, nil
}

// GatewayURL builds the public gateway URL for a content identifier.
func (c *Client) GatewayURL(cid string) string {
	if c == nil || cid == "" {
		return ""
	}
	return c.gatewayURL + "/" + cid
}

// Ping verifies the configured credentials against the pinning API.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("pinata client not initialized")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+testAuthPath, nil)
	if err != nil {
		return fmt.Errorf("building auth check request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling pinning api: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pinning auth check returned %d", resp.StatusCode)
	}
	return nil
}

func fileHeader(name, contentType string) textproto.MIMEHeader {
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	return h
}
