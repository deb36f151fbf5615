package webhook

import "errors"

var (
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrMalformedPayload = errors.New("malformed webhook payload")
)
