package dto

import (
	"github.com/go-playground/validator/v10"

	"github.com/hieplh/ata-sample-webapp/internal/model"
)

// RegisterValidators 注册自定义校验标签
func RegisterValidators(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"form_status": func(fl validator.FieldLevel) bool {
			return model.FormStatus(fl.Field().String()).Valid()
		},
		"form_type": func(fl validator.FieldLevel) bool {
			return model.FormType(fl.Field().String()).Valid()
		},
		"productivity": func(fl validator.FieldLevel) bool {
			return model.FormProductivity(fl.Field().String()).Valid()
		},
		"identity_type": func(fl validator.FieldLevel) bool {
			switch model.IdentityType(fl.Field().String()) {
			case model.IdentityTypeCCCD, model.IdentityTypeCMND, model.IdentityTypeHC:
				return true
			}
			return false
		},
		"clock": func(fl validator.FieldLevel) bool {
			_, err := model.NormalizeClock(fl.Field().String())
			return err == nil
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}
