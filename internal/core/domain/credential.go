package domain

import "time"

// Credential is a third-party service key owned by exactly one user.
type Credential struct {
	ID          uint64
	UserID      uint64
	ServiceName string
	Secret      string
	BaseURL     *string
	Active      bool
	CreatedAt   time.Time
}

// CredentialInput is what a user submits to create or replace a service key.
// Values are stored as submitted; a nil BaseURL clears any stored one.
type CredentialInput struct {
	ServiceName string
	Secret      string
	BaseURL     *string
}

// PutResult reports the stored credential and whether the write inserted a
// new row or updated an existing one.
type PutResult struct {
	Credential Credential
	Created    bool
}

func (r PutResult) Message() string {
	if r.Created {
		return r.Credential.ServiceName + " API key created successfully"
	}
	return r.Credential.ServiceName + " API key updated successfully"
}
