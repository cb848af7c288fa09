package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/mkaneko/kameki/internal/learning"
	"github.com/mkaneko/kameki/internal/review"
)

var subjectTypes = map[string]learning.SubjectType{
	"radical":    learning.SubjectRadical,
	"kanji":      learning.SubjectKanji,
	"vocabulary": learning.SubjectVocabulary,
}

func newValidator() (*validator.Validate, ut.Translator, error) {
	validate := validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, nil, fmt.Errorf("failed to register default translations: %w", err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := validate.RegisterValidation("review_order", isReviewOrder); err != nil {
		return nil, nil, fmt.Errorf("failed to register review_order validation: %w", err)
	}
	if err := validate.RegisterTranslation("review_order", trans, func(ut ut.Translator) error {
		return ut.Add("review_order", "{0} must be one of the known review orders", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("review_order", strings.TrimPrefix(fe.Namespace(), "Config."))
		return t
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to register review_order translation: %w", err)
	}

	if err := validate.RegisterValidation("subject_type", isSubjectType); err != nil {
		return nil, nil, fmt.Errorf("failed to register subject_type validation: %w", err)
	}
	if err := validate.RegisterTranslation("subject_type", trans, func(ut ut.Translator) error {
		return ut.Add("subject_type", "{0} must list only radical, kanji or vocabulary", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("subject_type", strings.TrimPrefix(fe.Namespace(), "Config."))
		return t
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to register subject_type translation: %w", err)
	}

	return validate, trans, nil
}

func isReviewOrder(fl validator.FieldLevel) bool {
	_, err := review.ParseOrder(fl.Field().String())
	return err == nil
}

func isSubjectType(fl validator.FieldLevel) bool {
	_, ok := subjectTypes[fl.Field().String()]
	return ok
}
