package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	register("glob", func(fl validator.FieldLevel) bool {
		return doublestar.ValidatePattern(fl.Field().String())
	})
	register("uriprefix", func(fl validator.FieldLevel) bool {
		scheme, _, ok := strings.Cut(fl.Field().String(), "://")
		return ok && scheme != "" && !strings.ContainsAny(scheme, "/:")
	})
	register("mapping_target", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		return strings.HasPrefix(v, "file://") || filepath.IsAbs(v)
	})
}

func register(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("failed to register %s validation: %v", tag, err))
	}
}

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return strings.Join(v.Errors, "; ")
}

// Validate checks cfg against its field rules.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "glob":
		return fmt.Sprintf("%s: %q is not a valid glob pattern", field, fe.Value())
	case "uriprefix":
		return fmt.Sprintf("%s: mapping key %q must be a URI prefix such as resource://app/", field, fe.Value())
	case "mapping_target":
		return fmt.Sprintf("%s: %q must be a file:// URI or an absolute path", field, fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s needs at least %s entry", field, fe.Param())
	case "required":
		return fmt.Sprintf("%s must not be empty", field)
	default:
		return fmt.Sprintf("%s failed on the '%s' tag", field, fe.Tag())
	}
}
