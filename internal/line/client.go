package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"jizhang/internal/bot"
)

const defaultReplyEndpoint = "https://api.line.me/v2/bot/message/reply"

// ReplyClient sends reply messages through the LINE Messaging API.
type ReplyClient struct {
	accessToken string
	endpoint    string
	httpClient  *http.Client
}

func NewReplyClient(accessToken string) *ReplyClient {
	return &ReplyClient{
		accessToken: accessToken,
		endpoint:    defaultReplyEndpoint,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

type replyRequest struct {
	ReplyToken string         `json:"replyToken"`
	Messages   []replyMessage `json:"messages"`
}

type replyMessage struct {
	Type       string      `json:"type"`
	Text       string      `json:"text"`
	QuickReply *quickReply `json:"quickReply,omitempty"`
}

type quickReply struct {
	Items []quickReplyItem `json:"items"`
}

type quickReplyItem struct {
	Type   string           `json:"type"`
	Action quickReplyAction `json:"action"`
}

type quickReplyAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Reply sends one text message back on the given reply token. Reply
// tokens are single use and expire quickly, so there is no retry.
func (c *ReplyClient) Reply(ctx context.Context, replyToken string, reply *bot.Reply) error {
	msg := replyMessage{Type: "text", Text: reply.Text}
	if len(reply.QuickReplies) > 0 {
		qr := &quickReply{}
		for _, q := range reply.QuickReplies {
			qr.Items = append(qr.Items, quickReplyItem{
				Type: "action",
				Action: quickReplyAction{
					Type:  "message",
					Label: q.Label,
					Text:  q.Text,
				},
			})
		}
		msg.QuickReply = qr
	}

	body, err := json.Marshal(replyRequest{
		ReplyToken: replyToken,
		Messages:   []replyMessage{msg},
	})
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("reply API status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
