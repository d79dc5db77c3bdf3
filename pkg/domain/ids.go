// Package domain holds shared domain primitives: typed identifiers and
// small value types used across packages. Typed UUIDs prevent accidentally
// passing an accountant ID where a client ID is expected.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// AccountantID identifies the accountant who owns a set of clients.
type AccountantID uuid.UUID

// ClientID identifies a taxpayer tracked for one tax year.
type ClientID uuid.UUID

func NewAccountantID() AccountantID { return AccountantID(uuid.New()) }

func NewClientID() ClientID { return ClientID(uuid.New()) }

// ParseAccountantID validates and returns an AccountantID.
func ParseAccountantID(s string) (AccountantID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AccountantID{}, fmt.Errorf("invalid accountant id: %w", err)
	}
	return AccountantID(u), nil
}

// ParseClientID validates and returns a ClientID.
func ParseClientID(s string) (ClientID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ClientID{}, fmt.Errorf("invalid client id: %w", err)
	}
	return ClientID(u), nil
}

func (id AccountantID) String() string { return uuid.UUID(id).String() }

func (id AccountantID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders the ID as its canonical UUID string in JSON and logs.
func (id AccountantID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *AccountantID) UnmarshalText(text []byte) error {
	parsed, err := ParseAccountantID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ClientID) String() string { return uuid.UUID(id).String() }

func (id ClientID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders the ID as its canonical UUID string in JSON and logs.
func (id ClientID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *ClientID) UnmarshalText(text []byte) error {
	parsed, err := ParseClientID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
