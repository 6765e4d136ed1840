package domain

import "errors"

var (
	ErrInvalidID          = errors.New("invalid id")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidMeasurement = errors.New("invalid measurement")
)
