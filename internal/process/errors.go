package process

import "fmt"

// UnsupportedTypeError reports a value whose runtime type, or a node whose
// type tag, resolves to no registered processor. This is the dominant
// expected failure: the message names the type so the caller can write a
// plugin for it.
type UnsupportedTypeError struct {
	Type string // runtime type name, when failing by type
	Tag  string // schema type tag, when failing by tag
}

// Error implements the error interface.
func (e *UnsupportedTypeError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("no processor registered for type tag %q: register a plugin that claims this tag", e.Tag)
	}
	return fmt.Sprintf("no processor registered for type %s: register a plugin for it", e.Type)
}
