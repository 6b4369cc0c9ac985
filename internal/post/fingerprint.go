package post

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/bloghub/internal/frontmatter"
)

// Keys that never take part in the fingerprint.
const (
	fingerprintKeyUID       = "uid"
	fingerprintKeyDiscussed = "discussion_url"
)

// ComputeFingerprint hashes the canonical YAML of fields together with the
// markdown body. Bookkeeping keys (uid, fingerprint, discussion_url) are
// excluded so the fingerprint only moves when visible content changes.
func ComputeFingerprint(fields map[string]any, body string) (string, error) {
	if fields == nil {
		return "", errors.New("fields map is nil")
	}

	forHash := make(map[string]any, len(fields))
	for k, v := range fields {
		switch k {
		case mdfp.FingerprintField, fingerprintKeyUID, fingerprintKeyDiscussed:
			continue
		}
		forHash[k] = v
	}

	serialized, err := frontmatter.Serialize(forHash)
	if err != nil {
		return "", err
	}
	serialized = strings.TrimSuffix(serialized, "\n")
	return mdfp.CalculateFingerprintFromParts(serialized, body), nil
}

// EnsureUID keeps an existing uid or assigns a fresh one. It reports
// whether a new uid was generated.
func (p *Post) EnsureUID(existing string) bool {
	if uid := strings.TrimSpace(existing); uid != "" {
		p.UID = uid
		return false
	}
	if p.UID != "" {
		return false
	}
	p.UID = uuid.NewString()
	return true
}
