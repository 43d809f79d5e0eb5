package checkoutapi

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

const otherNationalities = "*"

// Document types accepted per nationality.
var documentTypes = map[string][]string{
	"AR":               {"DNI", "PASSPORT", "CUIT"},
	"BR":               {"CPF", "RG", "PASSPORT"},
	"CL":               {"RUT", "PASSPORT"},
	"UY":               {"CI", "PASSPORT"},
	otherNationalities: {"PASSPORT"},
}

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{5,}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their json name so keys read like buyer[0].firstName
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	v.RegisterStructValidation(validateDocumentType, Buyer{})

	return v
}

func validateDocumentType(sl validator.StructLevel) {
	b := sl.Current().Interface().(Buyer)
	if b.DocumentType == "" || sl.Validator().Var(b.Nationality, "required,iso3166_1_alpha2") != nil {
		// reported by the field rules
		return
	}
	if !isAllowedDocumentType(b.Nationality, b.DocumentType) {
		sl.ReportError(b.DocumentType, "documentType", "DocumentType", "documenttype", b.Nationality)
	}
}

func DocumentTypesFor(nationality string) []string {
	types, found := documentTypes[nationality]
	if !found {
		return documentTypes[otherNationalities]
	}
	return types
}

// ValidateBuyers checks every buyer and returns all violations keyed by field.
// An empty map means the data is acceptable.
func ValidateBuyers(mainEmail string, buyers []Buyer, quantity int) map[string]string {
	fieldErrors := map[string]string{}

	if len(buyers) != quantity {
		fieldErrors["buyer"] = fmt.Sprintf("expected %d buyers, got %d", quantity, len(buyers))
	}

	req := BuyerDataRequest{
		MainEmail: strings.TrimSpace(mainEmail),
		Buyers:    make([]Buyer, 0, len(buyers)),
	}
	for _, b := range buyers {
		req.Buyers = append(req.Buyers, b.trimmed())
	}

	err := validate.Struct(req)
	if err == nil {
		return fieldErrors
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		fieldErrors["buyer"] = err.Error()
		return fieldErrors
	}
	for _, fe := range validationErrors {
		fieldErrors[fieldKey(fe)] = describe(fe)
	}

	return fieldErrors
}

// fieldKey drops the root struct name: "BuyerDataRequest.buyer[1].email" becomes "buyer[1].email".
func fieldKey(fe validator.FieldError) string {
	_, key, found := strings.Cut(fe.Namespace(), ".")
	if !found {
		return fe.Field()
	}
	return key
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "invalid email address"
	case "phone":
		return "invalid phone number"
	case "iso3166_1_alpha2":
		return "must be a two letter upper-case country code"
	case "documenttype":
		return fmt.Sprintf("must be one of %s for nationality %s",
			strings.Join(DocumentTypesFor(fe.Param()), ", "), fe.Param())
	default:
		return fmt.Sprintf("failed on %s", fe.Tag())
	}
}

func isAllowedDocumentType(nationality string, documentType string) bool {
	for _, t := range DocumentTypesFor(nationality) {
		if t == documentType {
			return true
		}
	}
	return false
}
