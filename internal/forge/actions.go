package forge

import (
	"strconv"
	"strings"
	"time"

	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
)

// IssueFromEnv builds an issue from the variables a GitHub Actions workflow
// exports for the triggering issue. ISSUE_NUMBER and ISSUE_TITLE are required.
func IssueFromEnv(getenv func(string) string) (*Issue, error) {
	rawNumber := strings.TrimSpace(getenv("ISSUE_NUMBER"))
	title := strings.TrimSpace(getenv("ISSUE_TITLE"))
	if rawNumber == "" || title == "" {
		return nil, errors.ValidationError("ISSUE_NUMBER and ISSUE_TITLE must be set").Build()
	}
	number, err := strconv.Atoi(rawNumber)
	if err != nil || number <= 0 {
		return nil, errors.ValidationError("ISSUE_NUMBER must be a positive integer").
			WithContext("value", rawNumber).
			Build()
	}

	now := time.Now().UTC()
	created := parseTime(getenv("ISSUE_CREATED_AT"), now)
	issue := &Issue{
		Number:    number,
		Title:     title,
		Body:      getenv("ISSUE_BODY"),
		State:     "closed",
		User:      User{Login: strings.TrimSpace(getenv("ISSUE_AUTHOR"))},
		CreatedAt: created,
		UpdatedAt: parseTime(getenv("ISSUE_UPDATED_AT"), created),
	}
	for _, name := range strings.Split(getenv("ISSUE_LABELS"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			issue.Labels = append(issue.Labels, Label{Name: name})
		}
	}
	if repo := strings.TrimSpace(getenv("GITHUB_REPOSITORY")); repo != "" {
		server := strings.TrimSuffix(getenv("GITHUB_SERVER_URL"), "/")
		if server == "" {
			server = "https://github.com"
		}
		issue.HTMLURL = server + "/" + repo + "/issues/" + rawNumber
	}
	return issue, nil
}

func parseTime(raw string, fallback time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw)); err == nil {
		return t.UTC()
	}
	return fallback
}
