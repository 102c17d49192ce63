// Package validation wraps go-playground/validator with the record formats
// used by the Gatekeeper API.
//
// Custom tags:
//
//	carduid  hexadecimal NFC card UID (any case)
//	btmac    six colon- or hyphen-delimited hex octets
//	logtype  access_denied | motion_detected | access_granted
//
// Field names in messages are the JSON names of the struct fields.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one failed constraint.
type FieldError struct {
	Field   string
	Tag     string
	Message string
}

// Error collects every failed constraint of one struct.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Get returns the shared validator, registering the custom tags on first use.
func Get() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonName)
		mustRegister(v, "carduid", func(fl validator.FieldLevel) bool {
			_, ok := types.CanonicalUID(fl.Field().String())
			return ok
		})
		mustRegister(v, "btmac", func(fl validator.FieldLevel) bool {
			_, ok := types.CanonicalMAC(fl.Field().String())
			return ok
		})
		mustRegister(v, "logtype", func(fl validator.FieldLevel) bool {
			return types.LogType(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

// Struct validates s and returns nil or an *Error.
func Struct(s any) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &Error{Fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	out := &Error{Fields: make([]FieldError, len(fieldErrs))}
	for i, fe := range fieldErrs {
		out.Fields[i] = FieldError{Field: fe.Field(), Tag: fe.Tag(), Message: translate(fe)}
	}
	return out
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

var messages = map[string]string{
	"required": "%s is required",
	"carduid":  "Invalid %s format. Must be hexadecimal.",
	"btmac":    "Invalid %s format. Must be six hex octets separated by ':' or '-'.",
	"logtype":  "Invalid %s. Must be access_denied, motion_detected or access_granted.",
}

func translate(fe validator.FieldError) string {
	field := fe.Field()
	if tmpl, ok := messages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, field)
	}
	switch fe.Tag() {
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
