package bid

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"mercator-hq/bidguard/pkg/policy"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		_, err := policy.ParseCategory(fl.Field().String())
		return err == nil
	})
	return v
}

// ValidationError lists every invalid field of a bid.
type ValidationError struct {
	Fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid bid: " + strings.Join(e.Fields, "; ")
}

// Validate checks b's struct constraints.
func Validate(b *Bid) error {
	err := validate.Struct(b)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Bid.")
		if fe.Param() != "" {
			out.Fields = append(out.Fields, fmt.Sprintf("%s: failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			out.Fields = append(out.Fields, fmt.Sprintf("%s: failed %s (got %v)", field, fe.Tag(), fe.Value()))
		}
	}
	return out
}
