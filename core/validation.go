package core

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

const maxPasswordBytes = 72

// LoginRequest is the payload of POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate only checks presence; wrong values are an authentication failure.
func (r LoginRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	))
}

// RegisterRequest is the payload of both registration endpoints.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate bounds the password at 72 bytes, the most bcrypt reads. There is
// no minimum length.
func (r RegisterRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 64), validation.Match(usernamePattern)),
		validation.Field(&r.Password, validation.Required, validation.Length(0, maxPasswordBytes)),
	))
}

// AuthorityRequest is the payload of POST /api/users/:username/authorities.
type AuthorityRequest struct {
	Role string `json:"role"`
}

func (r AuthorityRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required, validation.By(isRole)),
	))
}

func isRole(value interface{}) error {
	s, _ := value.(string)
	if _, err := ParseRole(s); err != nil {
		return errors.New("must be USER or ADMIN")
	}
	return nil
}

func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	return &AuthError{Kind: FailureValidation, Message: "invalid request", Err: err}
}

// validationFields flattens ozzo field errors for the error payload.
func validationFields(err error) map[string]string {
	errs, ok := err.(validation.Errors)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(errs))
	for field, fe := range errs {
		out[field] = fe.Error()
	}
	return out
}
