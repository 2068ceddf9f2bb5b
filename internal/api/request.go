package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"github.com/newthinker/sigfuse/internal/core"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// listQuery is the query string of the signal listing
type listQuery struct {
	Symbol string `json:"symbol" validate:"omitempty,max=20"`
	Action string `json:"action" validate:"omitempty,oneof=STRONG_BUY BUY WEAK_BUY HOLD WEAK_SELL SELL STRONG_SELL"`
	From   string `json:"from"`
	To     string `json:"to"`
	Limit  int    `json:"limit" default:"50" validate:"gte=1,lte=1000"`
	Offset int    `json:"offset" validate:"gte=0"`
}

// addRequest is the body of a watchlist addition
type addRequest struct {
	Symbol string `json:"symbol" validate:"required,max=20"`
}

// decodeBody reads a JSON body into req, then applies defaults and validation.
func decodeBody(r *http.Request, req any) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	return check(r.Context(), req)
}

// check fills `default` tags and validates req
func check(ctx context.Context, req any) error {
	if err := defaults.Set(req); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	if err := validate.StructCtx(ctx, req); err != nil {
		return core.WrapError(core.ErrConfigInvalid, describe(err))
	}
	return nil
}

func describe(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
