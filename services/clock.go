package services

import "time"

// timeNow is indirected so tests can pin timestamps.
var timeNow = func() time.Time { return time.Now().UTC() }
