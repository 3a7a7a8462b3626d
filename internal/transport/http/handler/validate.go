package handler

import (
	"github.com/ErlanBelekov/magic-auth/internal/domain"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the "identity" tag to gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("identity", func(fl validator.FieldLevel) bool {
		return domain.ValidIdentity(domain.NormalizeIdentity(fl.Field().String()))
	})
}
