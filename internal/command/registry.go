// Package command maps program invocation names to handlers.
//
// A handler is registered under a mixed-case identifier such as
// "transferToEthereumBridge"; the dispatcher looks it up by the derived
// command name "transfer-to-ethereum-bridge", which is how the binary is
// invoked (symlink or copy named after the command).
package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Handler runs one command with the arguments that follow the program name.
type Handler func(ctx context.Context, args []string) error

// Entry pairs a handler with the identifier its command name derives from.
type Entry struct {
	Identifier string
	Handler    Handler
}

// ErrDuplicateCommand is returned when two identifiers derive the same name.
var ErrDuplicateCommand = errors.New("duplicate command name")

// NotFoundError is returned by Dispatch for an unregistered name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("command name %q is not supported", e.Name)
}

// Name derives a command name: every uppercase letter becomes '-' followed by
// its lowercase form, everything else is copied.
func Name(identifier string) string {
	var b strings.Builder
	b.Grow(len(identifier) + 4)
	for _, r := range identifier {
		if unicode.IsUpper(r) {
			b.WriteByte('-')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Registry is an immutable name → handler table.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry registers every entry under its derived name.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{handlers: make(map[string]Handler, len(entries))}
	for _, e := range entries {
		if e.Handler == nil {
			return nil, fmt.Errorf("command %q has no handler", e.Identifier)
		}
		name := Name(e.Identifier)
		if _, exists := r.handlers[name]; exists {
			return nil, fmt.Errorf("%w: %q (from %q)", ErrDuplicateCommand, name, e.Identifier)
		}
		r.handlers[name] = e.Handler
	}
	return r, nil
}

// Dispatch returns the handler registered under name.
func (r *Registry) Dispatch(name string) (Handler, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return h, nil
}

// Names returns the registered command names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
