package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrRejected is returned when the backend answers 2xx with success=false.
	ErrRejected  = errors.New("rejected by backend")
	ErrNoReceipt = errors.New("receipt missing from response")

	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
)

// APIError is a non-2xx backend answer. Fields carries Laravel style
// validation errors ({"errors": {"field": ["msg"]}}) when present.
type APIError struct {
	Status  int                 `json:"status"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend %d", e.Status)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// FieldErrors flattens Fields into "field: msg" lines ordered by field name.
func (e *APIError) FieldErrors() []string {
	keys := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		keys = append(keys, f)
	}
	sort.Strings(keys)
	var out []string
	for _, f := range keys {
		for _, m := range e.Fields[f] {
			out = append(out, f+": "+m)
		}
	}
	return out
}

func decodeAPIError(status int, raw []byte) error {
	e := &APIError{Status: status}
	var body struct {
		Message string          `json:"message"`
		Error   string          `json:"error"`
		Errors  json.RawMessage `json:"errors"`
	}
	if json.Unmarshal(raw, &body) == nil {
		e.Message = body.Message
		if e.Message == "" {
			e.Message = body.Error
		}
		if len(body.Errors) > 0 {
			var fields map[string][]string
			if json.Unmarshal(body.Errors, &fields) == nil {
				e.Fields = fields
			} else {
				var single map[string]string
				if json.Unmarshal(body.Errors, &single) == nil {
					e.Fields = make(map[string][]string, len(single))
					for k, v := range single {
						e.Fields[k] = []string{v}
					}
				}
			}
		}
	} else if s := strings.TrimSpace(string(raw)); s != "" && len(s) < 200 {
		e.Message = s
	}
	return e
}

// AsAPIError unwraps err into an *APIError when it is one.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	ok := errors.As(err, &ae)
	return ae, ok
}
