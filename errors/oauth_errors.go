package errors

import "fmt"

// OAuth2Error is the wire-level error shape defined by RFC 6749 §5.2.
// Internal failure distinctions are collapsed into these categories before
// they reach a client; the detail lives in logs only.
type OAuth2Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	State       string `json:"state,omitempty"`
}

func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Standard OAuth2 error codes
const (
	InvalidRequest       = "invalid_request"
	InvalidClient        = "invalid_client"
	InvalidGrant         = "invalid_grant"
	UnsupportedGrantType = "unsupported_grant_type"
	ServerError          = "server_error"
)

func NewInvalidRequest(description, state string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidRequest, Description: description, State: state}
}

func NewInvalidClient(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidClient, Description: description}
}

func NewInvalidGrant(description, state string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidGrant, Description: description, State: state}
}

func NewServerError(description string) *OAuth2Error {
	return &OAuth2Error{Code: ServerError, Description: description}
}

func NewUnsupportedGrantType() *OAuth2Error {
	return &OAuth2Error{
		Code:        UnsupportedGrantType,
		Description: "The authorization grant type is not supported",
	}
}
