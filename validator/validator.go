// Package validator checks User field invariants before every write.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"

	"github.com/Skryldev/userstore/apperr"
	"github.com/Skryldev/userstore/models"
)

// Stage selects which lifecycle rules apply.
type Stage int

const (
	// StageCreate validates a user about to be inserted; ID may be zero.
	StageCreate Stage = iota
	// StagePersisted validates a stored user on update/delete paths; ID must
	// be non-zero.
	StagePersisted
)

func (s Stage) String() string {
	switch s {
	case StageCreate:
		return "create"
	case StagePersisted:
		return "persisted"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// FieldError describes one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// FieldErrors is returned as the Cause of an InvalidArgument error.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	msgs := make([]string, 0, len(fe))
	for _, e := range fe {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// Validator wraps the go-playground validator.
type Validator struct {
	validate        *playground.Validate
	requirePassword bool
}

// Option configures a Validator.
type Option func(*Validator)

// RequirePassword makes an absent password a validation failure.
func RequirePassword(required bool) Option {
	return func(v *Validator) { v.requirePassword = required }
}

// New builds a Validator. Field names in messages follow the json tags.
func New(opts ...Option) *Validator {
	pv := playground.New(playground.WithRequiredStructEnabled())
	pv.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return strings.ToLower(fld.Name)
		}
		return name
	})

	v := &Validator{validate: pv}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// User validates u for the given lifecycle stage. The returned error is an
// apperr InvalidArgument whose Cause is a FieldErrors.
func (v *Validator) User(u *models.User, stage Stage) error {
	if u == nil {
		return apperr.InvalidArgument("validate", "user is required")
	}

	var errs FieldErrors
	if stage == StagePersisted && u.ID == 0 {
		errs = append(errs, FieldError{Field: "id", Tag: "required", Message: "id is required"})
	}

	if err := v.validate.Struct(u); err != nil {
		var ves playground.ValidationErrors
		if !errors.As(err, &ves) {
			return apperr.Internal("validate", err)
		}
		for _, fe := range ves {
			errs = append(errs, FieldError{Field: fe.Field(), Tag: fe.Tag(), Message: msgForTag(fe)})
		}
	}

	switch {
	case u.Password != nil && *u.Password == "":
		errs = append(errs, FieldError{Field: "password", Tag: "min", Message: "password cannot be empty if provided"})
	case u.Password == nil && v.requirePassword:
		errs = append(errs, FieldError{Field: "password", Tag: "required", Message: "password is required"})
	}

	if len(errs) == 0 {
		return nil
	}
	return &apperr.Error{
		Kind:    apperr.ErrInvalidArgument,
		Op:      "validate",
		Message: errs.Error(),
		Cause:   errs,
	}
}

func msgForTag(fe playground.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
