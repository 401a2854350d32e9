package handler

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"vehiclerental/internal/domain"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding rules on gin's validator.
// It is safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("doctype", validateDocType)
		_ = v.RegisterValidation("bulkaction", validateBulkAction)
		v.RegisterStructValidation(validateRentalDates, CreateRentalRequest{})
	})
}

func validateDocType(fl validator.FieldLevel) bool {
	switch domain.DocumentType(fl.Field().String()) {
	case domain.DocumentKTP, domain.DocumentSIM:
		return true
	}
	return false
}

func validateBulkAction(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "approve", "reject":
		return true
	}
	return false
}

// validateRentalDates requires end_date after start_date.
func validateRentalDates(sl validator.StructLevel) {
	req := sl.Current().Interface().(CreateRentalRequest)
	start, err1 := time.Parse(dateFormat, req.StartDate)
	end, err2 := time.Parse(dateFormat, req.EndDate)
	if err1 != nil || err2 != nil {
		// datetime tags report the format problem.
		return
	}
	if !end.After(start) {
		sl.ReportError(req.EndDate, "end_date", "EndDate", "daterange", "")
	}
}

// bindingMessage turns a bind error into a short client-facing message.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := toSnake(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "datetime":
			msgs = append(msgs, field+" must be a date formatted "+fe.Param())
		case "daterange":
			msgs = append(msgs, "end_date must be after start_date")
		case "doctype":
			msgs = append(msgs, field+" must be ktp or sim")
		case "bulkaction":
			msgs = append(msgs, field+" must be approve or reject")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
