package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"TradeDash/pkg/util"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(fieldName)
	_ = validate.RegisterValidation("symbol", func(fl validator.FieldLevel) bool {
		return util.LooksLikeSymbol(util.NormalizeSymbol(fl.Field().String()))
	})
}

// fieldName reports fields by their wire name so errors match the request.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "query", "param"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

// ReadAndValidateRequest binds path, query and body into req, applies
// `default` tags, then validates. It returns nil or a []ValidationError.
func ReadAndValidateRequest(c echo.Context, req interface{}) interface{} {
	if err := c.Bind(req); err != nil {
		return validatorDefaultRules(err)
	}

	if err := defaults.Set(req); err != nil {
		return validatorDefaultRules(err)
	}

	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return validatorDefaultRules(err)
	}

	return nil
}

func validatorDefaultRules(err error) interface{} {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		out := make([]ValidationError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			out = append(out, describe(fe))
		}
		return out
	}

	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	return []ValidationError{{Code: "ERR_UNKNOWN", Message: msg}}
}

// rule renders one validator tag; param names the Params key for the tag argument.
type rule struct {
	format string
	param  string
}

var rules = map[string]rule{
	"required": {format: "%s is required"},
	"symbol":   {format: "%s must be a ticker symbol"},
	"datetime": {format: "%s must match %s", param: "layout"},
	"min":      {format: "%s must be at least %s", param: "min"},
	"max":      {format: "%s must be at most %s", param: "max"},
	"gte":      {format: "%s must be greater than or equal to %s", param: "min"},
	"lte":      {format: "%s must be less than or equal to %s", param: "max"},
	"gt":       {format: "%s must be greater than %s", param: "value"},
	"lt":       {format: "%s must be less than %s", param: "value"},
	"oneof":    {format: "%s must be one of: %s", param: "options"},
}

func describe(fe validator.FieldError) ValidationError {
	ve := ValidationError{
		Code:   "ERR_" + strings.ToUpper(fe.Tag()),
		Field:  fe.Field(),
		Params: map[string]interface{}{},
	}
	r, ok := rules[fe.Tag()]
	if !ok {
		ve.Message = fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag())
		return ve
	}

	arg := fe.Param()
	switch fe.Tag() {
	case "oneof":
		ve.Params[r.param] = strings.Fields(arg)
		arg = strings.Join(strings.Fields(arg), ", ")
	case "min", "max":
		if fe.Kind() == reflect.String {
			arg += " characters"
		}
		ve.Params[r.param] = fe.Param()
	default:
		if r.param != "" {
			ve.Params[r.param] = arg
		}
	}

	if strings.Count(r.format, "%s") == 1 {
		ve.Message = fmt.Sprintf(r.format, fe.Field())
	} else {
		ve.Message = fmt.Sprintf(r.format, fe.Field(), arg)
	}
	return ve
}
