package daemon

import (
	"io"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/bloghub/internal/forge"
	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
	"git.home.luguber.info/inful/bloghub/internal/observability"
	"git.home.luguber.info/inful/bloghub/internal/publish"
)

// maxWebhookBody caps the size of a webhook delivery.
const maxWebhookBody = 5 << 20

// WebhookResponse acknowledges a delivery.
type WebhookResponse struct {
	Status  string `json:"status"`
	Action  string `json:"action,omitempty"`
	Issue   int    `json:"issue,omitempty"`
	Outcome string `json:"outcome,omitempty"`
	URL     string `json:"url,omitempty"`
}

func (d *Daemon) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		d.adapter.WriteErrorResponse(w, r, errors.ValidationError("failed to read webhook body").WithCause(err).Build())
		return
	}
	if !forge.ValidateWebhook(payload, r.Header.Get("X-Hub-Signature-256"), d.cfg.GitHub.WebhookSecret) {
		d.adapter.WriteErrorResponse(w, r, errors.AuthError("invalid webhook signature").Build())
		return
	}

	switch event := r.Header.Get("X-GitHub-Event"); event {
	case "ping":
		writeJSON(w, http.StatusOK, WebhookResponse{Status: "pong"})
		return
	case "issues":
	default:
		writeJSON(w, http.StatusAccepted, WebhookResponse{Status: "ignored", Action: event})
		return
	}

	ev, err := forge.ParseIssueEvent(payload)
	if err != nil {
		d.adapter.WriteErrorResponse(w, r, err)
		return
	}
	d.recorder.IncWebhookEvent(ev.Action)

	ctx := observability.WithIssue(observability.WithRunID(r.Context(), "webhook-"+r.Header.Get("X-GitHub-Delivery")), ev.Issue.Number)
	label := d.cfg.GitHub.ApprovedLabel

	var res *publish.Result
	switch {
	case ev.Retracted(label):
		d.mu.Lock()
		res, err = d.publisher.Unpublish(ctx, ev.Issue.Number)
		d.mu.Unlock()
	case ev.Publishable(label):
		d.mu.Lock()
		res, err = d.publisher.Publish(ctx, &ev.Issue)
		d.mu.Unlock()
	default:
		observability.DebugContext(ctx, "Ignoring issue event", slog.String("action", ev.Action))
		writeJSON(w, http.StatusAccepted, WebhookResponse{Status: "ignored", Action: ev.Action, Issue: ev.Issue.Number})
		return
	}
	if err != nil {
		d.adapter.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, WebhookResponse{
		Status:  "processed",
		Action:  ev.Action,
		Issue:   ev.Issue.Number,
		Outcome: string(res.Outcome),
		URL:     res.URL,
	})
}
