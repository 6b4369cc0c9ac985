package commands

import (
	"context"
	"fmt"
	"os"

	"git.home.luguber.info/inful/bloghub/internal/forge"
	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
	"git.home.luguber.info/inful/bloghub/internal/publish"
)

// PublishCmd implements the 'publish' command.
type PublishCmd struct {
	Issue int `short:"i" help:"Issue number to fetch from the API; without it the issue is read from ISSUE_* environment variables"`
}

func (p *PublishCmd) Run(_ *Global, root *CLI) error {
	ctx := context.Background()
	a, err := newApp(ctx, root)
	if err != nil {
		return err
	}
	defer a.Close()

	var issue *forge.Issue
	labelsKnown := true
	if p.Issue > 0 {
		issue, err = a.forge.GetIssue(ctx, p.Issue)
	} else {
		issue, err = forge.IssueFromEnv(os.Getenv)
		_, labelsKnown = os.LookupEnv("ISSUE_LABELS")
	}
	if err != nil {
		return err
	}
	if err := checkApproved(issue, a.cfg.GitHub.ApprovedLabel, labelsKnown); err != nil {
		return err
	}

	res, err := a.service.Publish(ctx, issue)
	if res != nil {
		printResult(res)
	}
	return err
}

// checkApproved rejects an issue without the approval label. Workflows that
// do not export ISSUE_LABELS are trusted to filter on the label themselves.
func checkApproved(issue *forge.Issue, label string, labelsKnown bool) error {
	if !labelsKnown || issue.HasLabel(label) {
		return nil
	}
	return errors.ValidationError(fmt.Sprintf("issue #%d does not carry the %q label", issue.Number, label)).Build()
}

// UnpublishCmd implements the 'unpublish' command.
type UnpublishCmd struct {
	Issue int `short:"i" required:"" help:"Issue number to take offline"`
}

func (u *UnpublishCmd) Run(_ *Global, root *CLI) error {
	ctx := context.Background()
	a, err := newApp(ctx, root)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.service.Unpublish(ctx, u.Issue)
	if res != nil {
		printResult(res)
	}
	return err
}

func printResult(res *publish.Result) {
	if res.URL != "" {
		fmt.Printf("#%d %s: %s\n", res.Number, res.Outcome, res.URL)
		return
	}
	fmt.Printf("#%d %s\n", res.Number, res.Outcome)
}
