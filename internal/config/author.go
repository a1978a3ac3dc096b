package config

import (
	"fmt"
	"net/mail"
)

// parseAuthor parses "Name <email>" or a bare address.
func parseAuthor(s string) (name, email string, err error) {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return "", "", fmt.Errorf("history_author %q: %w", s, err)
	}
	return addr.Name, addr.Address, nil
}
