package utils

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var usernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)

// NewValidator builds the request validator with the custom rules the models
// need: usernames are charset-restricted, length-bounded and may not use the
// reserved word "me" (it shadows the /users/me route).
func NewValidator(limits Limits) *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("username", usernameRule(limits))
	return v
}

func usernameRule(limits Limits) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == "" || value == "me" {
			return false
		}
		if len(value) > limits.UsernameMaxLen {
			return false
		}
		return usernameRegex.MatchString(value)
	}
}
