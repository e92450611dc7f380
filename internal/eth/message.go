// Package eth implements the sign-in challenge message format and
// Ethereum signature recovery used by the auth service.
//
// The message layout follows EIP-4361 (Sign-In with Ethereum): a
// human-readable statement binding a domain, an address, a single-use
// nonce and a validity window. Clients sign the exact text with
// personal_sign (EIP-191).
package eth

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	headerSuffix = " wants you to sign in with your Ethereum account:"
	timeLayout   = time.RFC3339
)

// Message is a parsed sign-in challenge.
type Message struct {
	Domain         string
	Address        common.Address
	Statement      string
	URI            string
	Version        string
	ChainID        int64
	Nonce          string
	IssuedAt       time.Time
	ExpirationTime time.Time
}

// String renders the message in its canonical signable form. The exact
// byte sequence matters: the client signs this text verbatim.
func (m *Message) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s\n%s\n\n", m.Domain, headerSuffix, m.Address.Hex())
	if m.Statement != "" {
		fmt.Fprintf(&b, "%s\n\n", m.Statement)
	}
	fmt.Fprintf(&b, "URI: %s\n", m.URI)
	fmt.Fprintf(&b, "Version: %s\n", m.Version)
	fmt.Fprintf(&b, "Chain ID: %d\n", m.ChainID)
	fmt.Fprintf(&b, "Nonce: %s\n", m.Nonce)
	fmt.Fprintf(&b, "Issued At: %s\n", m.IssuedAt.UTC().Format(timeLayout))
	fmt.Fprintf(&b, "Expiration Time: %s", m.ExpirationTime.UTC().Format(timeLayout))
	return b.String()
}

// ParseMessage parses the canonical form back into a Message. Parsing is
// strict: every required field must be present and well formed.
func ParseMessage(raw string) (*Message, error) {
	lines := strings.Split(raw, "\n")
	if len(lines) < 3 {
		return nil, fmt.Errorf("message too short")
	}
	if !strings.HasSuffix(lines[0], headerSuffix) {
		return nil, fmt.Errorf("malformed header line")
	}

	msg := &Message{
		Domain: strings.TrimSuffix(lines[0], headerSuffix),
	}
	if msg.Domain == "" {
		return nil, fmt.Errorf("empty domain")
	}

	addr := strings.TrimSpace(lines[1])
	if !common.IsHexAddress(addr) {
		return nil, fmt.Errorf("invalid address %q", addr)
	}
	msg.Address = common.HexToAddress(addr)

	if lines[2] != "" {
		return nil, fmt.Errorf("expected blank line after address")
	}

	// Optional statement block: non-field lines before the field section.
	i := 3
	var statement []string
	for ; i < len(lines); i++ {
		if strings.Contains(lines[i], ": ") || strings.HasSuffix(lines[i], ":") {
			break
		}
		if lines[i] != "" {
			statement = append(statement, lines[i])
		}
	}
	msg.Statement = strings.Join(statement, "\n")

	fields := make(map[string]string)
	for ; i < len(lines); i++ {
		if lines[i] == "" {
			continue
		}
		key, value, ok := strings.Cut(lines[i], ": ")
		if !ok {
			return nil, fmt.Errorf("malformed field line %q", lines[i])
		}
		fields[key] = value
	}

	var err error
	if msg.URI = fields["URI"]; msg.URI == "" {
		return nil, fmt.Errorf("missing URI")
	}
	if msg.Version = fields["Version"]; msg.Version != "1" {
		return nil, fmt.Errorf("unsupported version %q", msg.Version)
	}
	if _, err = fmt.Sscanf(fields["Chain ID"], "%d", &msg.ChainID); err != nil {
		return nil, fmt.Errorf("invalid chain id: %w", err)
	}
	if msg.Nonce = fields["Nonce"]; msg.Nonce == "" {
		return nil, fmt.Errorf("missing nonce")
	}
	if msg.IssuedAt, err = time.Parse(timeLayout, fields["Issued At"]); err != nil {
		return nil, fmt.Errorf("invalid issued-at: %w", err)
	}
	if msg.ExpirationTime, err = time.Parse(timeLayout, fields["Expiration Time"]); err != nil {
		return nil, fmt.Errorf("invalid expiration time: %w", err)
	}

	return msg, nil
}

// NormalizeAddress returns the EIP-55 checksummed form of a hex address,
// the canonical representation stored and compared everywhere.
func NormalizeAddress(addr string) (string, error) {
	if !common.IsHexAddress(addr) {
		return "", fmt.Errorf("invalid ethereum address %q", addr)
	}
	return common.HexToAddress(addr).Hex(), nil
}
