package commits

import "errors"

// ErrMalformedLogRecord is returned by ParseGitLogOutput for records missing the
// hash, short hash, author or message field.
var ErrMalformedLogRecord = errors.New("malformed git log record")
