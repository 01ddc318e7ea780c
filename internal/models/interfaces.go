package models

import (
	"context"
)

type Encryptor interface {
	Encrypt(value string) (encrypted string, err error)
	Decrypt(value string) (decrypted string, err error)
}

type IDGenerator interface {
	ID() (string, error)
}

// CookieHandler represents the interface used to encrypt and decrypt cookies
type CookieHandler interface {
	Encode(name string, value interface{}) (string, error)
	Decode(name, value string, dst interface{}) error
}

type SessionRepository interface {
	SessionGetter
	SessionSetter
	SessionRemover
}

type SessionGetter interface {
	GetSession(ctx context.Context, sessionID string) (Session, error)
}

type SessionSetter interface {
	SetSession(ctx context.Context, session Session) error
}

type SessionRemover interface {
	RemoveSession(ctx context.Context, sessionID string) error
}

// CredentialsRepository persists the credentials belonging to a session
type CredentialsRepository interface {
	CredentialsGetter
	CredentialsSetter
	CredentialsRemover
}

type CredentialsGetter interface {
	GetCredentials(ctx context.Context, sessionID string) (Credentials, error)
}

type CredentialsSetter interface {
	SetCredentials(ctx context.Context, sessionID string, credentials Credentials) error
}

type CredentialsRemover interface {
	RemoveCredentials(ctx context.Context, sessionID string) error
}
