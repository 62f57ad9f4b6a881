package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/VarunDhamode/SciEquip-Website/models"
	"github.com/VarunDhamode/SciEquip-Website/services"
)

// APIClient is a thin typed client for the messaging HTTP surface.
type APIClient struct {
	baseURL string
	http    *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{baseURL: baseURL, http: http.DefaultClient}
}

// APIError is a non-2xx response decoded from the server's error shape.
type APIError struct {
	StatusCode int
	Title      string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s: %s", e.StatusCode, e.Title, e.Message)
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *APIClient) Conversations(ctx context.Context, userID uint, role models.Role) ([]services.ConversationSummary, error) {
	var out []services.ConversationSummary
	path := fmt.Sprintf("/api/conversations/%d/%s", userID, role)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) Messages(ctx context.Context, conversationID uint) ([]models.Message, error) {
	var out []models.Message
	path := fmt.Sprintf("/api/messages/%d", conversationID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessageRequest mirrors POST /api/messages: either ConversationID or
// the full triple.
type SendMessageRequest struct {
	ConversationID uint   `json:"conversationId,omitempty"`
	SenderID       uint   `json:"senderId"`
	SenderType     string `json:"senderType"`
	MessageText    string `json:"messageText"`
	RFQID          uint   `json:"rfqId,omitempty"`
	CustomerID     uint   `json:"customerId,omitempty"`
	VendorID       uint   `json:"vendorId,omitempty"`
}

func (c *APIClient) SendMessage(ctx context.Context, req SendMessageRequest) (*models.Message, error) {
	var out models.Message
	if err := c.do(ctx, http.MethodPost, "/api/messages", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) MarkConversationRead(ctx context.Context, conversationID uint, role models.Role) error {
	path := fmt.Sprintf("/api/conversations/%d/read", conversationID)
	body := map[string]string{"userType": string(role)}
	return c.do(ctx, http.MethodPut, path, body, nil)
}

func (c *APIClient) MarkMessageRead(ctx context.Context, messageID uint) error {
	path := fmt.Sprintf("/api/messages/%d/read", messageID)
	return c.do(ctx, http.MethodPut, path, struct{}{}, nil)
}

func (c *APIClient) OnlineStatus(ctx context.Context, userID uint, role models.Role) (services.StatusView, error) {
	var out services.StatusView
	path := fmt.Sprintf("/api/online-status/%d/%s", userID, role)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}
