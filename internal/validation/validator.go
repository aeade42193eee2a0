package validation

import (
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/wishwall/internal/wishes"
)

// New returns a configured validator with the wish specific tags registered.
// Field errors are reported under their json names.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// wishgender accepts only the fixed gender enumeration.
	_ = v.RegisterValidation("wishgender", func(fl validatorv10.FieldLevel) bool {
		return wishes.Gender(fl.Field().String()).Valid()
	})

	return v
}
