package service

import (
	"errors"
	"fmt"
	"strings"

	"trackvote/internal/domain"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator with the domain's custom rules registered
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("track", func(fl validator.FieldLevel) bool {
		return domain.Track(fl.Field().String()).Valid()
	})
	return v
}

// validationDetails flattens validator errors into a field -> rule map
func validationDetails(err error) map[string]interface{} {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]interface{}, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule = fmt.Sprintf("%s=%s", rule, fe.Param())
		}
		details[strings.ToLower(fe.Namespace())] = rule
	}
	return details
}
