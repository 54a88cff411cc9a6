package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	playground "github.com/go-playground/validator/v10"
)

// ErrMissingFields is returned when any `required` rule fails. The message
// matches what API clients have always received for incomplete bodies.
var ErrMissingFields = errors.New("Missing required fields")

// PasswordSpecials is the set of characters accepted as the special
// character of a registration password.
const PasswordSpecials = "@$!%*?&"

const MinPasswordLen = 8

// MaxPasswordBytes is the longest password bcrypt will hash.
const MaxPasswordBytes = 72

var (
	namePattern  = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
}

type validator struct {
	v *playground.Validate
}

// New returns a Validator with the registration rules registered as tags:
// personname, simpleemail and strongpassword.
func New() Validator {
	v := playground.New(playground.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("personname", func(fl playground.FieldLevel) bool {
		return IsPersonName(fl.Field().String())
	})
	_ = v.RegisterValidation("simpleemail", func(fl playground.FieldLevel) bool {
		return IsEmail(fl.Field().String())
	})
	_ = v.RegisterValidation("strongpassword", func(fl playground.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	})

	return &validator{v: v}
}

func (v *validator) Validate(obj interface{}) error {
	err := v.v.Struct(obj)
	if err == nil {
		return nil
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			return ErrMissingFields
		}
		messages = append(messages, describe(fe))
	}
	return errors.New(strings.Join(messages, "; "))
}

func describe(fe playground.FieldError) string {
	switch fe.Tag() {
	case "personname":
		return "name must contain only letters and spaces"
	case "simpleemail":
		return "email must be a valid address (e.g. example@domain.com)"
	case "strongpassword":
		pwd := fmt.Sprint(fe.Value())
		if len(pwd) > MaxPasswordBytes {
			return fmt.Sprintf("password must be at most %d bytes long", MaxPasswordBytes)
		}
		return "password is missing: " + strings.Join(PasswordProblems(pwd), ", ")
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// IsPersonName reports whether s holds only ASCII letters and whitespace.
func IsPersonName(s string) bool {
	return namePattern.MatchString(s)
}

// IsEmail checks the simple local@domain.tld shape.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsStrongPassword reports whether pwd meets every password rule and fits
// within MaxPasswordBytes.
func IsStrongPassword(pwd string) bool {
	return len(pwd) <= MaxPasswordBytes && len(PasswordProblems(pwd)) == 0
}

// PasswordProblems lists every unmet password rule, in display order.
// Length counts characters; the letter and digit classes are ASCII only.
// An empty result means the password is acceptable.
func PasswordProblems(pwd string) []string {
	var lower, upper, digit, special bool
	for _, r := range pwd {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(PasswordSpecials, r):
			special = true
		}
	}

	var problems []string
	if utf8.RuneCountInString(pwd) < MinPasswordLen {
		problems = append(problems, fmt.Sprintf("at least %d characters", MinPasswordLen))
	}
	if !lower {
		problems = append(problems, "one lowercase letter")
	}
	if !upper {
		problems = append(problems, "one uppercase letter")
	}
	if !digit {
		problems = append(problems, "one number")
	}
	if !special {
		problems = append(problems, "one special character ("+PasswordSpecials+")")
	}
	return problems
}
