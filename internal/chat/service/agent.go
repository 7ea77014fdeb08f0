package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"medportal/pkg/client"
)

// AgentRequest carries one user message to the assistant service. Each
// channel marshals it into the wire shape its endpoint expects.
type AgentRequest struct {
	Text      string
	UserID    string
	SessionID string
	FileID    string
}

// wsAgentMessage is the frame the assistant's websocket endpoint reads.
// Identity travels in the connection path, not the frame.
type wsAgentMessage struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	FileID string `json:"fileId,omitempty"`
}

// restAgentMessage is the POST /api/message body. The assistant requires
// message and userId; sessionId and fileId are optional.
type restAgentMessage struct {
	Message   string `json:"message"`
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId,omitempty"`
	FileID    string `json:"fileId,omitempty"`
}

type agentResponse struct {
	Response string `json:"response"`
	Text     string `json:"text"`
}

func (r agentResponse) reply() string {
	if r.Response != "" {
		return r.Response
	}
	return r.Text
}

// AgentChannel delivers one user message to the assistant service and
// returns its reply.
type AgentChannel interface {
	Send(ctx context.Context, req AgentRequest) (string, error)
}

// wsAgentChannel speaks to the assistant over a short-lived websocket
// connection per message.
type wsAgentChannel struct {
	url    string
	dialer *websocket.Dialer
}

func NewWSAgentChannel(url string) AgentChannel {
	return &wsAgentChannel{
		url:    url,
		dialer: websocket.DefaultDialer,
	}
}

func (c *wsAgentChannel) Send(ctx context.Context, req AgentRequest) (string, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to dial agent: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return "", fmt.Errorf("failed to set read deadline: %w", err)
		}
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return "", fmt.Errorf("failed to set write deadline: %w", err)
		}
	}

	frame := wsAgentMessage{
		Type:   "user_message",
		Text:   req.Text,
		FileID: req.FileID,
	}
	if err := conn.WriteJSON(frame); err != nil {
		return "", fmt.Errorf("failed to send message to agent: %w", err)
	}

	var resp agentResponse
	if err := conn.ReadJSON(&resp); err != nil {
		return "", fmt.Errorf("failed to read agent reply: %w", err)
	}
	return resp.reply(), nil
}

// restAgentChannel is the HTTP fallback used when the websocket path is
// unavailable.
type restAgentChannel struct {
	client *client.HttpClient
}

func NewRESTAgentChannel(httpClient *client.HttpClient) AgentChannel {
	return &restAgentChannel{client: httpClient}
}

func (c *restAgentChannel) Send(ctx context.Context, req AgentRequest) (string, error) {
	body := restAgentMessage{
		Message:   req.Text,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		FileID:    req.FileID,
	}

	resp, err := c.client.POST(ctx, "/api/message", body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("agent returned status %d", resp.StatusCode)
	}

	var reply agentResponse
	if err := resp.DecodeJSON(&reply); err != nil {
		return "", fmt.Errorf("failed to decode agent reply: %w", err)
	}
	return reply.reply(), nil
}
