package upstream

import "errors"

// ErrUpstreamUnavailable is returned when an external price or market API
// cannot be read. Callers recover locally with cached or zeroed data.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")
