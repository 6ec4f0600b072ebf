// Package bind decodes and validates an HTTP request body into a struct.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/adityaraj/bazario/config"
	"github.com/adityaraj/bazario/pkg/validate"
)

const defaultBodyCap = 4 << 20 // 4 MB

// bodyCap reads MAX_BODY_BYTES, the request body size ceiling.
func bodyCap() int64 {
	n, err := strconv.ParseInt(config.Get("MAX_BODY_BYTES", ""), 10, 64)
	if err != nil || n <= 0 {
		return defaultBodyCap
	}
	return n
}

// JSON decodes r.Body into dest and validates it. The body is capped at
// MAX_BODY_BYTES so an oversized payload cannot exhaust memory.
//
// A non-nil errs map means validation failed and should become a 422; a
// non-nil err means the body itself was unusable (malformed or too large).
func JSON(r *http.Request, dest interface{}) (errs map[string]string, err error) {
	r.Body = http.MaxBytesReader(nil, r.Body, bodyCap())

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, fmt.Errorf("request body too large (max %d bytes)", tooBig.Limit)
		}
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if errs := validate.Struct(dest); validate.HasErrors(errs) {
		return errs, nil
	}
	return nil, nil
}
