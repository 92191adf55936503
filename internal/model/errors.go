package model

import "errors"

var (
	ErrPickle   = errors.New("could not pickle model")
	ErrHash     = errors.New("could not hash model")
	ErrUnpickle = errors.New("could not be unpickled")
	ErrNotModel = errors.New("not type Model")
	ErrDataset  = errors.New("training dataset is required")
)
