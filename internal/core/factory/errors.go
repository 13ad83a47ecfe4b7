package factory

import "errors"

var (
	ErrClassNotFound   = errors.New("class not found")
	ErrInvalidArgument = errors.New("invalid creator argument")
	ErrUnexpectedType  = errors.New("created instance has unexpected type")
)
