package dto

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 64
	MinPasswordLength = 6
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordLength = 72
	MaxMessageLength  = 4000
)

// Violation enumerates every way a request body can be rejected before it
// reaches a service.
type Violation int

const (
	ViolationNone Violation = iota
	ViolationInvalid
	ViolationUsernameLength
	ViolationEmailFormat
	ViolationPasswordLength
	ViolationMissingCredentials
	ViolationRoleUnknown
	ViolationAvatarURL
	ViolationFieldTooLong
	ViolationContentEmpty
	ViolationContentTooLong
	ViolationMissingPeer
)

var violationMessages = map[Violation]string{
	ViolationInvalid:            "Invalid request",
	ViolationUsernameLength:     "Username must be between 3 and 64 characters",
	ViolationEmailFormat:        "Please provide a valid email",
	ViolationPasswordLength:     "Password must be between 6 characters and 72 bytes",
	ViolationMissingCredentials: "Username or email and password are required",
	ViolationRoleUnknown:        "Role must be influencer or brand",
	ViolationAvatarURL:          "Avatar must be a valid URL",
	ViolationFieldTooLong:       "One or more fields exceed the maximum length",
	ViolationContentEmpty:       "Message content cannot be empty",
	ViolationContentTooLong:     "Message content exceeds 4000 characters",
	ViolationMissingPeer:        "A valid userId is required",
}

// Message returns the user-facing text for v.
func (v Violation) Message() string {
	if msg, ok := violationMessages[v]; ok {
		return msg
	}
	return ""
}

func (v Violation) Error() string {
	return v.Message()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// rules maps "Field.tag" or "Field" to the violation reported for it.
type rules map[string]Violation

func check(req any, r rules) Violation {
	err := validate.Struct(req)
	if err == nil {
		return ViolationNone
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return ViolationInvalid
	}

	fe := ve[0]
	if v, ok := r[fe.StructField()+"."+fe.Tag()]; ok {
		return v
	}
	if v, ok := r[fe.StructField()]; ok {
		return v
	}
	if fe.Tag() == "max" {
		return ViolationFieldTooLong
	}
	return ViolationInvalid
}
