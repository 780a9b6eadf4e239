package cachekey

import "errors"

// ErrInvalidKeyComponent is returned when a measure or frequency value would
// corrupt the key grammar (embeds ':', '{' or '}').
var ErrInvalidKeyComponent = errors.New("cachekey: invalid key component")
