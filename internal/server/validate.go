package server

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const (
	serialTag  = "serial"
	serialText = "{0} must start with SCH-"
)

// Validator checks request bodies and renders failures in English using
// the JSON field names.
type Validator struct {
	v     *validator.Validate
	trans ut.Translator
}

func NewValidator() *Validator {
	v := validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(serialTag, func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || strings.HasPrefix(s, "SCH-")
	})
	_ = v.RegisterTranslation(serialTag, trans,
		func(t ut.Translator) error { return t.Add(serialTag, serialText, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(serialTag, fe.Field())
			return s
		},
	)

	return &Validator{v: v, trans: trans}
}

// Struct validates s and returns the first failure as a readable error.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return errors.New(verrs[0].Translate(v.trans))
	}
	return err
}

// decode reads a JSON body into dst and validates it, answering 400 on
// failure. It reports whether the handler may continue.
func (v *Validator) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := readJSON(r, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := v.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
