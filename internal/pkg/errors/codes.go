package errors

import (
	"fmt"
	"net/http"
)

// Code represents a business error code with its HTTP status and message.
type Code struct {
	Code    int
	Status  int
	Message string
}

const (
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer  = 1000
	ErrInvalidParams   = 1001
	ErrNotFound        = 1002
	ErrUnauthorized    = 1003
	ErrConflict        = 1005
	ErrTooManyRequests = 1006
	ErrBadRequest      = 1007
	ErrServiceUnavail  = 1008

	// File errors (2000-2999)
	ErrFileNotFound        = 2000
	ErrFileExpired         = 2001
	ErrFileConsumed        = 2002
	ErrFileLimitReached    = 2003
	ErrFilePasswordNeeded  = 2004
	ErrFileInvalidPassword = 2005
	ErrFileTooLarge        = 2006
	ErrFileInvalidExpiry   = 2007
	ErrSlugInvalidFormat   = 2008
	ErrSlugTaken           = 2009
	ErrSlugExhausted       = 2010
	ErrStorageFailed       = 2011
	ErrFileInvalidLimit    = 2012

	// Sweep errors (3000-3999)
	ErrSweepUnauthorized = 3000
	ErrSweepFailed       = 3001
)

var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	ErrInternalServer:  {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:   {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:        {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrUnauthorized:    {ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	ErrConflict:        {ErrConflict, http.StatusConflict, "Resource conflict"},
	ErrTooManyRequests: {ErrTooManyRequests, http.StatusTooManyRequests, "Too many requests"},
	ErrBadRequest:      {ErrBadRequest, http.StatusBadRequest, "Bad request"},
	ErrServiceUnavail:  {ErrServiceUnavail, http.StatusServiceUnavailable, "Service unavailable"},

	ErrFileNotFound:        {ErrFileNotFound, http.StatusNotFound, "File not found"},
	ErrFileExpired:         {ErrFileExpired, http.StatusGone, "File expired"},
	ErrFileConsumed:        {ErrFileConsumed, http.StatusGone, "File already downloaded"},
	ErrFileLimitReached:    {ErrFileLimitReached, http.StatusGone, "Download limit reached"},
	ErrFilePasswordNeeded:  {ErrFilePasswordNeeded, http.StatusUnauthorized, "Password required"},
	ErrFileInvalidPassword: {ErrFileInvalidPassword, http.StatusUnauthorized, "Invalid password"},
	ErrFileTooLarge:        {ErrFileTooLarge, http.StatusBadRequest, "File size exceeds limit"},
	ErrFileInvalidExpiry:   {ErrFileInvalidExpiry, http.StatusBadRequest, "Invalid expiry time"},
	ErrSlugInvalidFormat:   {ErrSlugInvalidFormat, http.StatusBadRequest, "Invalid slug format"},
	ErrSlugTaken:           {ErrSlugTaken, http.StatusConflict, "Slug already taken"},
	ErrSlugExhausted:       {ErrSlugExhausted, http.StatusInternalServerError, "Could not generate unique slug"},
	ErrStorageFailed:       {ErrStorageFailed, http.StatusInternalServerError, "Storage operation failed"},
	ErrFileInvalidLimit:    {ErrFileInvalidLimit, http.StatusBadRequest, "Invalid download limit"},

	ErrSweepUnauthorized: {ErrSweepUnauthorized, http.StatusUnauthorized, "Invalid sweep credential"},
	ErrSweepFailed:       {ErrSweepFailed, http.StatusInternalServerError, "Sweep failed"},
}

// GetCode returns the Code for a given error code.
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns the HTTP status for a given error code.
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage returns the message for a given error code.
func GetMessage(code int) string {
	return GetCode(code).Message
}

// FormatError formats an error message with optional details.
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
