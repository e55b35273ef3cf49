package analytics

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/helixir/research-analytics-service/internal/domain"
)

// AnalyticsFilter selects the authorships of the combined analytics use case.
// Zero ids and an empty field mean "no filter".
type AnalyticsFilter struct {
	CountryID     int64  `param:"country_id" validate:"required_with=InstitutionID,omitempty,gt=0"`
	InstitutionID int64  `param:"institution_id" validate:"omitempty,gt=0"`
	Field         string `param:"field" validate:"max=200"`
}

func (f AnalyticsFilter) echo() domain.AnalyticsFilters {
	var out domain.AnalyticsFilters
	if f.CountryID != 0 {
		id := f.CountryID
		out.CountryID = &id
	}
	if f.InstitutionID != 0 {
		id := f.InstitutionID
		out.InstitutionID = &id
	}
	if f.Field != "" {
		field := f.Field
		out.Field = &field
	}
	return out
}

type fieldFilter struct {
	Field string `param:"field" validate:"required,max=200"`
}

type fieldCountryFilter struct {
	Field     string `param:"field" validate:"required,max=200"`
	CountryID int64  `param:"country_id" validate:"required,gt=0"`
}

type countryFilter struct {
	CountryID int64  `param:"country_id" validate:"required,gt=0"`
	Query     string `param:"q" validate:"max=200"`
}

type searchFilter struct {
	Query string `param:"q" validate:"max=200"`
}

type pageFilter struct {
	Page  int `param:"page" validate:"gte=1,lte=1000000"`
	Limit int `param:"limit" validate:"gte=1,lte=100"`
}

// newValidator returns a validator reporting fields by their request parameter name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("param"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// validateStruct checks s and converts the first failure into a *domain.ValidationError.
func (s *Service) validateStruct(v any) error {
	return translate(s.validate.Struct(v))
}

// validateID checks a path identifier.
func (s *Service) validateID(name string, id int64) error {
	if err := s.validate.Var(id, "gt=0"); err != nil {
		return domain.NewValidationError(name, "must be a positive integer")
	}
	return nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.NewValidationError("request", err.Error())
	}

	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "required_with":
		msg = fmt.Sprintf("is required when %s is provided", snakeCase(fe.Param()))
	case "gt":
		msg = "must be greater than " + fe.Param()
	case "gte":
		msg = "must be at least " + fe.Param()
	case "lte", "max":
		msg = "must be at most " + fe.Param()
	default:
		msg = "is invalid"
	}
	return domain.NewValidationError(fe.Field(), msg)
}

// snakeCase converts a Go field name such as InstitutionID to institution_id.
func snakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
