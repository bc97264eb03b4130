package recognizer

import "errors"

// ErrCancelled wraps the context error Run returns when its context is
// cancelled or its deadline expires mid-loop.
var ErrCancelled = errors.New("recognizer: cancelled")
