package handler

import appErrors "github.com/noah-isme/feedback-api/pkg/errors"

// bindError reports a request body that could not be decoded.
func bindError(err error, message string) *appErrors.Error {
	appErr := appErrors.WithFields(appErrors.ErrValidation, message, "payload")
	appErr.Err = err
	return appErr
}
