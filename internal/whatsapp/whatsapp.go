package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL            = "https://graph.facebook.com"
	defaultAPIVersion = "v18.0"
	contentType       = "application/json"
	// Error bodies are truncated to this many bytes in returned errors.
	maxErrorBody = 512
)

type Client struct {
	token      string
	phoneID    string
	apiVersion string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
}

type textMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// New returns a Graph API messaging client for the given business phone number id.
func New(logger *zap.Logger, token, phoneID, apiVersion string) (*Client, error) {
	token = strings.TrimSpace(token)
	phoneID = strings.TrimSpace(phoneID)
	if token == "" || phoneID == "" {
		return nil, errors.New("whatsapp token and phone id are required")
	}

	if apiVersion = strings.TrimSpace(apiVersion); apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:      token,
		phoneID:    phoneID,
		apiVersion: apiVersion,
		logger:     logger,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		APIURL: apiURL,
	}, nil
}

// Send delivers a plain text message and returns the provider message id.
func (c *Client) Send(ctx context.Context, recipient, text string) (string, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return "", errors.New("recipient is required")
	}

	msg := textMessage{MessagingProduct: "whatsapp", To: recipient, Type: "text"}
	msg.Text.Body = text

	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.APIURL, c.apiVersion, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	req = c.setHeaders(req)

	resp, err := c.request(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		body := string(data)
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return "", fmt.Errorf("bad status: %s: %s", resp.Status, body)
	}

	var response sendResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(response.Messages) == 0 || response.Messages[0].ID == "" {
		return "", errors.New("response has no message id")
	}

	return response.Messages[0].ID, nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("Content-Type", contentType)

	return req
}
