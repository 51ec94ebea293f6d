// Package domain contains core concepts of the chat system.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"strings"

	"github.com/go-playground/validator/v10"

	cerrors "chatsapp/errors"
)

// Room identity is its name: case-sensitive, non-empty, immutable once created.
type Room struct {
	Name string
}

var validate = validator.New()

// ValidateName checks display names and room names alike.
// Names are part of protocol lines, so whitespace and ':' are forbidden
// to keep "<sender>: <body>" parsable on the client side.
func ValidateName(name string) error {
	if err := validate.Var(name, "required,min=1,max=32,printascii"); err != nil {
		return cerrors.ErrInvalidName
	}
	if strings.ContainsAny(name, " :\t") {
		return cerrors.ErrInvalidName
	}
	return nil
}
