// Package session establishes the identity under which papers are submitted
// and the library feed is read.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrAuth wraps every failure to establish a session.
var ErrAuth = errors.New("session establishment failed")

// Provider establishes a session and returns the user id.
type Provider interface {
	Establish(ctx context.Context) (string, error)
}

// Anonymous signs in without credentials. The generated user id is kept in a
// file so the same terminal keeps the same identity across runs.
type Anonymous struct {
	path string
}

func NewAnonymous(path string) *Anonymous {
	return &Anonymous{path: path}
}

func (a *Anonymous) Establish(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}

	data, err := os.ReadFile(a.path)
	switch {
	case err == nil:
		id := strings.TrimSpace(string(data))
		if _, perr := uuid.Parse(id); perr != nil {
			return "", fmt.Errorf("%w: corrupt identity file %s: %v", ErrAuth, a.path, perr)
		}
		return id, nil
	case !os.IsNotExist(err):
		return "", fmt.Errorf("%w: reading identity: %v", ErrAuth, err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(a.path), 0o700); err != nil {
		return "", fmt.Errorf("%w: creating identity dir: %v", ErrAuth, err)
	}
	if err := os.WriteFile(a.path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("%w: writing identity: %v", ErrAuth, err)
	}
	return id, nil
}

// Static is a Provider with a fixed identity, used for headless commands.
type Static string

func (s Static) Establish(context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty user id", ErrAuth)
	}
	return string(s), nil
}
