// Package validate checks request payload structs against `validate` tags.
//
// Rules, comma-separated inside the tag:
//
//	required            non-zero value
//	nullable            empty or nil skips every other rule on the field
//	email               well-formed email address
//	url                 absolute http/https URL
//	numeric             parses as a number
//	integer             parses as a whole number
//	min=N / max=N       length bound for strings, value bound for numbers
//	gt gte lt lte =N    numeric comparisons
//	between=lo,hi       inclusive range (length for strings, value for numbers)
//	in=a,b,c            membership in a fixed set
//	confirmed           must equal the sibling field <name>_confirmation
//
// Pointer fields are dereferenced first; a nil pointer counts as empty, so an
// optional field is a pointer tagged `nullable`:
//
//	type Input struct {
//	    Name  string  `json:"name"  validate:"required,min=2,max=100"`
//	    Email string  `json:"email" validate:"required,email"`
//	    Role  string  `json:"role"  validate:"required,in=admin,user"`
//	    Site  *string `json:"site"  validate:"nullable,url"`
//	}
package validate

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Struct runs every tagged rule on v (a struct or pointer to one) and returns
// fieldName → first failing message. An empty map means the input is valid.
func Struct(v interface{}) map[string]string {
	errs := make(map[string]string)

	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return errs
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		tag := rt.Field(i).Tag.Get("validate")
		if tag == "" {
			continue
		}
		name := jsonName(rt.Field(i))
		if msg := checkField(name, rv.Field(i), rv, parseTag(tag)); msg != "" {
			errs[name] = msg
		}
	}
	return errs
}

// HasErrors reports whether Struct found anything.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

// checkField applies the parsed rules in order and returns the first failure.
func checkField(name string, fv, parent reflect.Value, rules []rule) string {
	for _, r := range rules {
		if r.key == "nullable" && isEmpty(fv) {
			return ""
		}
	}
	if fv.Kind() == reflect.Ptr && !fv.IsNil() {
		fv = fv.Elem()
	}

	for _, r := range rules {
		if r.key == "nullable" {
			continue
		}
		if msg := r.check(name, fv, parent); msg != "" {
			return msg
		}
	}
	return ""
}

type rule struct {
	key   string
	param string
}

func (r rule) check(field string, v, parent reflect.Value) string {
	raw := fmt.Sprintf("%v", v.Interface())

	switch r.key {
	case "required":
		if isEmpty(v) {
			return fmt.Sprintf("The %s field is required.", field)
		}
	case "email":
		if !emailRE.MatchString(raw) {
			return fmt.Sprintf("The %s must be a valid email address.", field)
		}
	case "url":
		u, err := url.ParseRequestURI(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Sprintf("The %s must be a valid URL.", field)
		}
	case "numeric":
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return fmt.Sprintf("The %s field must be a number.", field)
		}
	case "integer":
		if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
			return fmt.Sprintf("The %s field must be an integer.", field)
		}
	case "min":
		if length, isLen := measure(v, raw); length < floatParam(r.param) {
			if isLen {
				return fmt.Sprintf("The %s must be at least %s characters.", field, r.param)
			}
			return fmt.Sprintf("The %s must be at least %s.", field, r.param)
		}
	case "max":
		if length, isLen := measure(v, raw); length > floatParam(r.param) {
			if isLen {
				return fmt.Sprintf("The %s must not exceed %s characters.", field, r.param)
			}
			return fmt.Sprintf("The %s must not be greater than %s.", field, r.param)
		}
	case "gt":
		if numeric(v) <= floatParam(r.param) {
			return fmt.Sprintf("The %s must be greater than %s.", field, r.param)
		}
	case "gte":
		if numeric(v) < floatParam(r.param) {
			return fmt.Sprintf("The %s must be greater than or equal to %s.", field, r.param)
		}
	case "lt":
		if numeric(v) >= floatParam(r.param) {
			return fmt.Sprintf("The %s must be less than %s.", field, r.param)
		}
	case "lte":
		if numeric(v) > floatParam(r.param) {
			return fmt.Sprintf("The %s must be less than or equal to %s.", field, r.param)
		}
	case "between":
		lo, hi, ok := strings.Cut(r.param, ",")
		if !ok {
			return ""
		}
		length, isLen := measure(v, raw)
		if length < floatParam(lo) || length > floatParam(hi) {
			if isLen {
				return fmt.Sprintf("The %s must be between %s and %s characters.", field, lo, hi)
			}
			return fmt.Sprintf("The %s must be between %s and %s.", field, lo, hi)
		}
	case "in":
		for _, allowed := range strings.Split(r.param, ",") {
			if raw == strings.TrimSpace(allowed) {
				return ""
			}
		}
		return fmt.Sprintf("The selected %s is invalid.", field)
	case "confirmed":
		sibling, ok := fieldByJSONName(parent, field+"_confirmation")
		if !ok || fmt.Sprintf("%v", sibling.Interface()) != raw {
			return fmt.Sprintf("The %s confirmation does not match.", field)
		}
	}
	return ""
}

// measure returns the comparable magnitude of a value for min/max/between:
// rune count for strings (isLen true), the numeric value otherwise.
func measure(v reflect.Value, raw string) (float64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return numeric(v), false
	}
	return float64(len([]rune(raw))), true
}

func numeric(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	f, _ := strconv.ParseFloat(fmt.Sprintf("%v", v.Interface()), 64)
	return f
}

func floatParam(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Bool:
		// false is a legitimate value.
		return false
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	}
	return false
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" || tag == "-" {
		return strings.ToLower(f.Name)
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}

func fieldByJSONName(parent reflect.Value, name string) (reflect.Value, bool) {
	rt := parent.Type()
	for i := 0; i < rt.NumField(); i++ {
		if jsonName(rt.Field(i)) == name {
			return parent.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// ruleKeywords are the tokens a comma may legally start inside a tag. A comma
// followed by anything else belongs to the parameter of the rule before it
// (in=card,upi,cod or between=1,10).
var ruleKeywords = []string{
	"required", "nullable", "email", "url", "numeric", "integer", "confirmed",
	"min=", "max=", "gt=", "gte=", "lt=", "lte=", "between=", "in=",
}

func parseTag(tag string) []rule {
	var out []rule
	for tag != "" {
		token, rest := nextToken(tag)
		key, param, _ := strings.Cut(token, "=")
		out = append(out, rule{key: key, param: param})
		tag = rest
	}
	return out
}

// nextToken cuts one rule off the front of the tag, keeping parameter commas
// with their rule.
func nextToken(tag string) (token, rest string) {
	for i := 0; i < len(tag); i++ {
		if tag[i] != ',' {
			continue
		}
		if startsWithKeyword(tag[i+1:]) {
			return tag[:i], tag[i+1:]
		}
	}
	return tag, ""
}

func startsWithKeyword(s string) bool {
	for _, k := range ruleKeywords {
		if strings.HasPrefix(s, k) {
			return true
		}
	}
	return false
}
