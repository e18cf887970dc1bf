package lead

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/teleapo/core"
)

var (
	statusTag  = "leadstatus"
	statusText = "{0} is not a valid lead status"
)

// InitValidators registers the lead validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, core.OneOfValidation(AllStatuses...))
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}
