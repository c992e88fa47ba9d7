package middleware

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	clinicvalidator "github.com/jwalitptl/clinic-api/pkg/validator"
)

// RegisterBindingValidation points gin's binding validator at the
// `validate` tags and installs the clinic rules, so ShouldBindJSON reports
// the same fields and messages as the services do.
func RegisterBindingValidation() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.SetTagName("validate")
		clinicvalidator.Register(v)
	}
}
