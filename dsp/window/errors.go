package window

import "errors"

// ErrUnknownType is returned by Parse for unknown window names.
var ErrUnknownType = errors.New("window: unknown window type")
