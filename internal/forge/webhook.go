package forge

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
)

// IssueEvent is the payload of an "issues" webhook delivery.
type IssueEvent struct {
	Action string `json:"action"`
	Issue  Issue  `json:"issue"`
	Label  *Label `json:"label,omitempty"`
}

// ValidateWebhook checks an X-Hub-Signature-256 header against payload.
func ValidateWebhook(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected, ok := strings.CutPrefix(signature, "sha256=")
	if !ok {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	calc := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(calc))
}

// ParseIssueEvent decodes an "issues" webhook payload.
func ParseIssueEvent(payload []byte) (*IssueEvent, error) {
	var ev IssueEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, errors.ValidationError("invalid issues webhook payload").WithCause(err).Build()
	}
	if ev.Issue.Number == 0 {
		return nil, errors.ValidationError("issues webhook payload has no issue number").Build()
	}
	return &ev, nil
}

// Publishable reports whether the event leaves the issue in a publishable
// state: closed and carrying the approval label.
func (e *IssueEvent) Publishable(label string) bool {
	switch e.Action {
	case "closed", "labeled", "edited", "reopened":
	default:
		return false
	}
	return e.Issue.State == "closed" && e.Issue.HasLabel(label)
}

// Retracted reports whether the event takes a published issue offline:
// reopened, deleted, or the approval label removed.
func (e *IssueEvent) Retracted(label string) bool {
	switch e.Action {
	case "reopened", "deleted":
		return true
	case "unlabeled":
		return e.Label != nil && strings.EqualFold(e.Label.Name, label)
	default:
		return false
	}
}
