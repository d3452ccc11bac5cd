// internal/domain/checkout/validation.go
package checkout

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

var formValidator = newFormValidator()

var fieldMessages = map[string]string{
	"fullName.filled":                    "Enter your full name",
	"email.filled":                       "Enter your email",
	"email.basic_email":                  "Enter a valid email",
	"phone.filled":                       "Enter your phone number",
	"address.required_for_delivery":      "Enter your address",
	"city.required_for_delivery":         "Enter your city",
	"postalCode.required_for_delivery":   "Enter your postal code",
	"deliveryMethod.oneof":               "Choose a delivery method",
	"paymentMethod.oneof":                "Choose a payment method",
	"paymentMethod.cash_requires_pickup": "Cash payment is only available for pickup",
}

func newFormValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs
	_ = v.RegisterValidation("filled", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("basic_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})

	v.RegisterStructValidation(validateFormRules, FormData{})

	return v
}

// validateFormRules checks the rules that depend on the delivery method
func validateFormRules(sl validator.StructLevel) {
	form := sl.Current().Interface().(FormData)

	if form.DeliveryMethod == "" || !form.DeliveryMethod.RequiresAddress() {
		return
	}

	required := []struct {
		value, name, structName string
	}{
		{form.Address, string(FieldAddress), "Address"},
		{form.City, string(FieldCity), "City"},
		{form.PostalCode, string(FieldPostalCode), "PostalCode"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			sl.ReportError(r.value, r.name, r.structName, "required_for_delivery", "")
		}
	}

	if form.PaymentMethod == PaymentCash {
		sl.ReportError(form.PaymentMethod, string(FieldPaymentMethod), "PaymentMethod", "cash_requires_pickup", "")
	}
}

// ValidateForm returns per-field messages, or nil when the form can be submitted
func ValidateForm(form FormData) map[string]string {
	err := formValidator.Struct(form)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"form": err.Error()}
	}

	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = "Invalid value"
		}
		fields[fe.Field()] = msg
	}
	return fields
}
