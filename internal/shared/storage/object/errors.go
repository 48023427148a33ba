package object

import "errors"

// ErrTooLarge is returned by ReadString when an object exceeds its limit.
var ErrTooLarge = errors.New("object exceeds read limit")
