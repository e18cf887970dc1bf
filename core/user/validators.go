package user

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/teleapo/core"
)

var (
	roleTag  = "userrole"
	roleText = "{0} must be one of admin, manager, agent or viewer"
)

// InitValidators registers the user validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, core.OneOfValidation(AllRoles...))
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)
}
