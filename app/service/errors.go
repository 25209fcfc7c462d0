package service

import "errors"

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrOrderAmbiguous     = errors.New("order id matches multiple payments")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrProvisioningFailed = errors.New("provisioning failed")
)
