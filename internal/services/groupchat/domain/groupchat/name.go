package groupchat

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

const (
	maxNameLength        = 100
	maxMessageTextLength = 1000
)

var (
	validate = validator.New()

	nameRule        = fmt.Sprintf("required,max=%d", maxNameLength)
	messageTextRule = fmt.Sprintf("required,max=%d", maxMessageTextLength)
)

// Name is a trimmed, NFC-normalized group chat name of 1 to 100 characters.
type Name struct {
	value string
}

// NewName validates and normalizes v.
func NewName(v string) (Name, error) {
	v = norm.NFC.String(strings.TrimSpace(v))
	if err := validate.Var(v, nameRule); err != nil {
		return Name{}, ErrNameInvalid
	}
	return Name{value: v}, nil
}

// MustName is NewName for literals known to be valid.
func MustName(v string) Name {
	n, err := NewName(v)
	if err != nil {
		panic(err)
	}
	return n
}

// String returns the normalized name.
func (n Name) String() string { return n.value }

// IsZero reports whether n was never constructed.
func (n Name) IsZero() bool { return n.value == "" }
