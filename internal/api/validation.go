package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kalambet/jobtrack/internal/job"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterValidation("jobstatus", func(fl validator.FieldLevel) bool {
		_, ok := job.ParseStatus(fl.Field().String())
		return ok
	})
	v.RegisterValidation("jobtype", func(fl validator.FieldLevel) bool {
		_, ok := job.ParseType(fl.Field().String())
		return ok
	})
	return v
}

// JobInput is the body of create and update requests.
type JobInput struct {
	Company  string `json:"company" validate:"required,max=100"`
	Position string `json:"position" validate:"required,max=100"`
	Location string `json:"location" validate:"required,max=100"`
	Status   string `json:"status" validate:"omitempty,jobstatus"`
	Type     string `json:"type" validate:"omitempty,jobtype"`
}

func (in *JobInput) normalize() {
	in.Company = strings.TrimSpace(in.Company)
	in.Position = strings.TrimSpace(in.Position)
	in.Location = strings.TrimSpace(in.Location)
	in.Status = strings.TrimSpace(in.Status)
	in.Type = strings.TrimSpace(in.Type)
}

// listFilters holds the enumerated list parameters that are checked before
// the query is built.
type listFilters struct {
	Status string `json:"status" validate:"omitempty,eq=all|jobstatus"`
	Type   string `json:"type" validate:"omitempty,eq=all|jobtype"`
}

// validationMessage renders a validator error as one line of text.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s has invalid value %q", fe.Field(), fmt.Sprint(fe.Value())))
		}
	}
	return strings.Join(msgs, "; ")
}
