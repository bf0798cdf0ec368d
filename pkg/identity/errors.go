package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownIdentity indicates sign was called for an ai_id with no
	// local key material.
	ErrUnknownIdentity = errors.New("unknown identity")

	// ErrKeyLoadError indicates key material on disk was corrupt or
	// unreadable.
	ErrKeyLoadError = errors.New("key load error")

	// ErrIdentityExists indicates create_identity was called without
	// overwrite for an ai_id that already has key material.
	ErrIdentityExists = errors.New("identity already exists")
)

// UnknownIdentityError names the ai_id that has no local key material.
type UnknownIdentityError struct {
	AIID string
}

func (e *UnknownIdentityError) Error() string {
	return fmt.Sprintf("unknown identity: %s", e.AIID)
}

func (e *UnknownIdentityError) Unwrap() error { return ErrUnknownIdentity }

// KeyLoadError wraps a failure reading or decoding key material from disk.
type KeyLoadError struct {
	AIID string
	Path string
	Err  error
}

func (e *KeyLoadError) Error() string {
	return fmt.Sprintf("failed to load key for %s at %s: %v", e.AIID, e.Path, e.Err)
}

func (e *KeyLoadError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrKeyLoadError
}
