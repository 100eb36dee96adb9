package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrorStaleReport is returned when a report build finishes after a newer
// search was started by the same client.
var ErrorStaleReport = errors.New("report superseded by a newer search")
