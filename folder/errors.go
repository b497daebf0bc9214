package folder

import "errors"

var (
	ErrNoParent       = errors.New("folder has no parent")
	ErrUnknownRoot    = errors.New("parent is not a known root folder")
	ErrParentNotFound = errors.New("parent folder does not exist")
)
