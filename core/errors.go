package core

import "errors"

var (
	ErrEmptyToken           = errors.New("token is empty")
	ErrInvalidUser          = errors.New("user must have an id and a username")
	ErrNoCredential         = errors.New("no stored credential")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token has expired")
	ErrLogoutInProgress     = errors.New("logout in progress")
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrRecipientNotFound    = errors.New("recipient not found")
	ErrStoreOperationFailed = errors.New("store operation failed")
	ErrValidation           = errors.New("validation failed")
)
