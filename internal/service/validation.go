package service

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/apperrors"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/models"
)

const notBlankTag = "notblank"

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// report json names instead of Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		if s, ok := fl.Field().Interface().(string); ok {
			return strings.TrimSpace(s) != ""
		}
		return false
	})
	_ = validate.RegisterTranslation(notBlankTag, translator,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string {
			return fe.Field() + " cannot be blank"
		},
	)

	validate.RegisterStructValidation(serviceRequestDatesValidation, models.CreateServiceRequestRequest{})
}

// serviceRequestDatesValidation rejects an end date before the start date.
func serviceRequestDatesValidation(sl validator.StructLevel) {
	req, ok := sl.Current().Interface().(models.CreateServiceRequestRequest)
	if !ok || req.StartDate == "" || req.EndDate == "" {
		return
	}
	start, errStart := time.Parse(models.DateLayout, req.StartDate)
	end, errEnd := time.Parse(models.DateLayout, req.EndDate)
	if errStart == nil && errEnd == nil && end.Before(start) {
		sl.ReportError(req.EndDate, "end_date", "EndDate", "gtefield", "start_date")
	}
}

// validateStruct runs the tag rules on a request DTO and reports the first
// failing field as a validation error.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.Validation(fe.Field(), "%s", fe.Translate(translator))
	}
	return apperrors.Validation("body", "invalid request: %v", err)
}

func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return time.Time{}, apperrors.Validation(field, "%s must be a date in YYYY-MM-DD format", field)
	}
	return t, nil
}

// maxOffset bounds the row offset so it fits a PostgreSQL integer.
const maxOffset = math.MaxInt32

// Pager normalizes page/limit query values.
type Pager struct {
	DefaultLimit int
	MaxLimit     int
}

// normalize returns the page, limit and row offset to query with. Pages past
// maxOffset are clamped to the last reachable page, which is always empty.
func (p Pager) normalize(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = p.DefaultLimit
	}
	if limit > p.MaxLimit {
		limit = p.MaxLimit
	}
	if page-1 > maxOffset/limit {
		page = maxOffset/limit + 1
	}
	return page, limit, (page - 1) * limit
}
