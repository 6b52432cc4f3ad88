package domain

import "fmt"

// Reason phrases returned in the error envelope.
const (
	ReasonUserNotAuthenticated = "UserNotAuthenticatedError"
	ReasonEmptyRequestBody     = "EmptyRequestBodyError"
	ReasonFieldValidation      = "FieldValidationError"
	ReasonInternalServer       = "InternalServerError"
	ReasonRequest              = "RequestError"
)

// Error is the uniform envelope every failed request returns. Code doubles
// as the HTTP status of the response. Downstream services speak the same
// envelope, so their structured failures unmarshal straight into this type
// and pass through unchanged.
type Error struct {
	Code         int    `json:"code"`
	Description  string `json:"description"`
	ReasonPhrase string `json:"reasonPhrase"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.ReasonPhrase, e.Description)
}

// Status returns the HTTP status to respond with. Envelopes from backends
// occasionally carry application codes outside the HTTP range; those fall
// back to 500.
func (e *Error) Status() int {
	if e.Code >= 100 && e.Code < 600 {
		return e.Code
	}
	return 500
}

// NewUserNotAuthenticated builds the 401 envelope used for missing/invalid
// tokens and for failed merchant-linkage checks.
func NewUserNotAuthenticated(description string) *Error {
	return &Error{Code: 401, Description: description, ReasonPhrase: ReasonUserNotAuthenticated}
}

// NewEmptyRequestBody builds the 400 envelope for a required body that is
// absent or empty.
func NewEmptyRequestBody(description string) *Error {
	return &Error{Code: 400, Description: description, ReasonPhrase: ReasonEmptyRequestBody}
}

// NewFieldValidation builds the 400 envelope for a missing or malformed
// request field.
func NewFieldValidation(description string) *Error {
	return &Error{Code: 400, Description: description, ReasonPhrase: ReasonFieldValidation}
}

// NewInternal builds the generic 500 envelope. No internal detail is ever
// exposed through it.
func NewInternal() *Error {
	return &Error{Code: 500, Description: "Internal server error", ReasonPhrase: ReasonInternalServer}
}

// Confirmation is the fixed success body for operations whose downstream
// response carries nothing worth forwarding.
type Confirmation struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
}
