// ABOUTME: Inbound event model and extraction from Telegram update payloads
// ABOUTME: Resolves a best-effort sender identity with documented precedence

package bridge

import (
	"encoding/json"
	"strconv"
)

// Event is one inbound message extracted from a webhook delivery.
type Event struct {
	Sender string          `json:"sender"`
	Text   string          `json:"text"`
	Raw    json.RawMessage `json:"raw,omitempty"`
}

// update mirrors the parts of a Telegram update payload the bridge reads.
// Everything else passes through untouched in Event.Raw.
type update struct {
	UpdateID      *int64      `json:"update_id"`
	Message       *updateBody `json:"message"`
	EditedMessage *updateBody `json:"edited_message"`
}

type updateBody struct {
	Text string      `json:"text"`
	From *updateFrom `json:"from"`
}

type updateFrom struct {
	ID        *int64 `json:"id"` // pointer: a present id of 0 still identifies the sender
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// extractEvent pulls sender and text out of a parsed update. Returns
// (nil, false) when the update carries no extractable text; such updates
// are accepted but never queued.
//
// Sender precedence: username, then first name, then numeric id, then
// the literal "unknown".
func extractEvent(raw json.RawMessage, u *update) (*Event, bool) {
	body := u.Message
	if body == nil {
		body = u.EditedMessage
	}
	if body == nil || body.Text == "" {
		return nil, false
	}

	sender := "unknown"
	if from := body.From; from != nil {
		switch {
		case from.Username != "":
			sender = from.Username
		case from.FirstName != "":
			sender = from.FirstName
		case from.ID != nil:
			sender = strconv.FormatInt(*from.ID, 10)
		}
	}

	return &Event{Sender: sender, Text: body.Text, Raw: raw}, true
}
