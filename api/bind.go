package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/warp/timeentry-engine/holiday"
)

// =============================================================================
// REQUEST BINDING AND VALIDATION
// =============================================================================

// maxBodyBytes caps request bodies; batches of a few thousand shifts fit.
const maxBodyBytes = 4 << 20

// errBadRequest marks decode and validation failures.
var errBadRequest = errors.New("bad request")

// requestError carries the field that failed, if any.
type requestError struct {
	Field   string
	Message string
}

func (e *requestError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

func (e *requestError) Is(target error) bool { return target == errBadRequest }

type validatorSvc struct {
	validate   *validator.Validate
	translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *validatorSvc
)

// validation returns the shared validator with english messages and json
// field names.
func validation() *validatorSvc {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		_ = v.RegisterValidation("bundesland", func(fl validator.FieldLevel) bool {
			return holiday.ValidRegion(fl.Field().String())
		})
		_ = v.RegisterTranslation("bundesland", trans,
			func(ut ut.Translator) error {
				return ut.Add("bundesland", "{0} must be a German state code like BY or NW", true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				msg, _ := ut.T("bundesland", fe.Field())
				return msg
			},
		)

		vSvc = &validatorSvc{validate: v, translator: trans}
	})
	return vSvc
}

// decodeJSON reads one JSON document into T and validates it.
func decodeJSON[T any](r *http.Request) (T, error) {
	var dst T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&dst); err != nil {
		if errors.Is(err, io.EOF) {
			return dst, &requestError{Message: "empty body"}
		}
		return dst, &requestError{Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if dec.More() {
		return dst, &requestError{Message: "unexpected trailing data"}
	}
	if err := validateStruct(dst); err != nil {
		return dst, err
	}
	return dst, nil
}

func validateStruct(v any) error {
	svc := validation()
	err := svc.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		// drop the struct type name: "shifts[0].date"
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		return &requestError{Field: field, Message: fe.Translate(svc.translator)}
	}
	return &requestError{Message: err.Error()}
}
