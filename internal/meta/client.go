// Package meta submits finalized templates to the WhatsApp Business
// Management API.
package meta

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"whatsapp-composer/internal/config"
)

const graphBase = "https://graph.facebook.com/v19.0"

type Client struct {
	Config *config.Config
	HTTP   *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		Config: cfg,
		HTTP:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether credentials are present; without them the
// submission endpoints answer 503 instead of calling out.
func (c *Client) Configured() bool {
	return c.Config.WhatsAppToken != "" && c.Config.WhatsAppBusinessAccountID != ""
}

func (c *Client) sendRequest(method, url string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Config.WhatsAppToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return respBody, fmt.Errorf("API error: %s - %s", resp.Status, string(respBody))
	}
	return respBody, nil
}

// CreateTemplate submits a creation payload to the business account.
func (c *Client) CreateTemplate(templateData interface{}) (interface{}, error) {
	url := fmt.Sprintf("%s/%s/message_templates", graphBase, c.Config.WhatsAppBusinessAccountID)
	resp, err := c.sendRequest("POST", url, templateData)
	if err != nil {
		return nil, err
	}
	var result interface{}
	err = json.Unmarshal(resp, &result)
	return result, err
}

// GetTemplates lists the account's templates, passed through raw.
func (c *Client) GetTemplates() (interface{}, error) {
	url := fmt.Sprintf("%s/%s/message_templates", graphBase, c.Config.WhatsAppBusinessAccountID)
	resp, err := c.sendRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	var result interface{}
	err = json.Unmarshal(resp, &result)
	return result, err
}

// DeleteTemplate removes a template by name.
func (c *Client) DeleteTemplate(templateName string) error {
	url := fmt.Sprintf("%s/%s/message_templates?name=%s", graphBase, c.Config.WhatsAppBusinessAccountID, templateName)
	_, err := c.sendRequest("DELETE", url, nil)
	return err
}
