package valueobjects

import (
	"fmt"
	"unicode/utf8"

	"flowbuilder/domain/config"
	pkgerrors "flowbuilder/pkg/errors"
)

// Label is the text content of a message node. It is stored verbatim:
// the editor may hold empty or whitespace-only text while the user types.
type Label struct {
	text string
}

// NewLabel creates a label using the default configuration
func NewLabel(text string) (Label, error) {
	return NewLabelWithConfig(text, config.DefaultDomainConfig())
}

// NewLabelWithConfig creates a label validated against cfg
func NewLabelWithConfig(text string, cfg *config.DomainConfig) (Label, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if !utf8.ValidString(text) {
		return Label{}, pkgerrors.NewValidationError("label must be valid UTF-8")
	}

	if utf8.RuneCountInString(text) > cfg.MaxLabelLength {
		return Label{}, pkgerrors.NewValidationError(fmt.Sprintf("label exceeds maximum length of %d characters", cfg.MaxLabelLength))
	}

	return Label{text: text}, nil
}

// Text returns the label text
func (l Label) Text() string {
	return l.text
}

// String implements fmt.Stringer
func (l Label) String() string {
	return l.text
}

// Equals checks if two labels are equal
func (l Label) Equals(other Label) bool {
	return l.text == other.text
}

// IsEmpty checks if the label has no text
func (l Label) IsEmpty() bool {
	return l.text == ""
}
