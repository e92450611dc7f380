package ports

import "github.com/wizardkeep/warden/core"

// Tokenizer converts between sessions and their signed wire form.
type Tokenizer interface {
	// IssueSession signs a session into its token form.
	IssueSession(session *core.Session) (string, error)

	// ParseSession validates a token's signature, audience and expiry and
	// returns the carried session. It performs no store lookups.
	ParseSession(token string) (*core.Session, error)
}
