package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

const (
	scoreTag       = "score"
	classLetterTag = "classletter"
	notBlankTag    = "notblank"
)

// requestValidator validates decoded request bodies and renders field errors
// keyed by their JSON names.
type requestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
	maxScore   int
}

func newRequestValidator(maxScore int) *requestValidator {
	v := &requestValidator{
		validate: validator.New(),
		maxScore: maxScore,
	}

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	v.translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v.validate, v.translator)

	// Use JSON tag names for errors instead of Go struct names.
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.validate.RegisterValidation(scoreTag, v.scoreValidation)
	_ = v.validate.RegisterValidation(classLetterTag, classLetterValidation)
	_ = v.validate.RegisterValidation(notBlankTag, notBlankValidation)

	v.registerTranslation(scoreTag, fmt.Sprintf("{0} must be between 0 and %d", maxScore))
	v.registerTranslation(classLetterTag, "{0} must be exactly one letter")
	v.registerTranslation(notBlankTag, "{0} cannot be blank")
	v.registerTranslation("required", "this field is required", true)

	return v
}

func (v *requestValidator) registerTranslation(tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = v.validate.RegisterTranslation(
		tag, v.translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates s and returns the failing fields, or nil.
func (v *requestValidator) Struct(s any) map[string]string {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": err.Error()}
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Translate(v.translator)
	}
	return details
}

func (v *requestValidator) scoreValidation(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		score := fl.Field().Int()
		return score >= 0 && score <= int64(v.maxScore)
	default:
		return false
	}
}

func classLetterValidation(fl validator.FieldLevel) bool {
	letter := strings.TrimSpace(fl.Field().String())
	if utf8.RuneCountInString(letter) != 1 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(letter)
	return unicode.IsLetter(r)
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Body decoding
// ─────────────────────────────────────────────────────────────────────────────

// decodeAndValidate reads a JSON body into dst and validates it.
// On failure it writes a 400 response and returns false.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeJSONError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large", nil)
		case errors.Is(err, io.EOF):
			writeJSONError(w, r, http.StatusBadRequest, "invalid_json", "Request body is empty", nil)
		default:
			writeJSONError(w, r, http.StatusBadRequest, "invalid_json", "Invalid JSON body", map[string]string{"body": err.Error()})
		}
		return false
	}

	if details := s.validator.Struct(dst); details != nil {
		writeJSONError(w, r, http.StatusBadRequest, "validation_error", "Request validation failed", details)
		return false
	}
	return true
}
