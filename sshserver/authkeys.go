package sshserver

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	gliderssh "github.com/gliderlabs/ssh"
	"golang.org/x/crypto/ssh"
)

// AuthorizedKeys is a set of public keys allowed to log in.
type AuthorizedKeys struct {
	keys []ssh.PublicKey
}

// LoadAuthorizedKeys reads an OpenSSH authorized_keys file. Options and
// comments are ignored.
func LoadAuthorizedKeys(path string) (*AuthorizedKeys, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read authorized keys: %w", err)
	}
	return ParseAuthorizedKeys(data)
}

// ParseAuthorizedKeys parses authorized_keys content.
func ParseAuthorizedKeys(data []byte) (*AuthorizedKeys, error) {
	set := &AuthorizedKeys{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
		if err != nil {
			return nil, fmt.Errorf("authorized keys line %d: %w", lineNo, err)
		}
		set.keys = append(set.keys, key)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

// Len returns the number of keys.
func (a *AuthorizedKeys) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// Allows reports whether key is in the set.
func (a *AuthorizedKeys) Allows(key ssh.PublicKey) bool {
	if a == nil {
		return false
	}
	for _, k := range a.keys {
		if gliderssh.KeysEqual(k, key) {
			return true
		}
	}
	return false
}
