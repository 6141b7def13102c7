package service

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	appErrors "github.com/noah-isme/vtc-admin-api/pkg/errors"
	"github.com/noah-isme/vtc-admin-api/pkg/validation"
)

// DashboardCachePattern matches every cached dashboard payload.
const DashboardCachePattern = "dash:*"

// fieldErrors runs struct validation and returns the failures keyed by json field.
func fieldErrors(v *validator.Validate, payload interface{}) (map[string]string, error) {
	if err := v.Struct(payload); err != nil {
		fields := validation.FieldErrors(err)
		if fields == nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
		}
		return fields, nil
	}
	return map[string]string{}, nil
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// validID reports whether id can name a stored record. Malformed ids are
// treated as missing rather than sent to the UUID columns.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
