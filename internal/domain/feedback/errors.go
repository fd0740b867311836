package feedback

import "errors"

// ErrStore wraps failures of the underlying report store.
var ErrStore = errors.New("report store")
