package utils

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
)

// Minimal internal validator to avoid external dependency. Supports:
// - required
// - roomok (1-5 alphanumeric characters, e.g. "412" or "12B")
// - pinmin (min length 4)
// - maxmsg (message at most 2000 characters)

var reRoomOK = regexp.MustCompile(`^[A-Za-z0-9]{1,5}$`)

// ValidateStruct inspects struct tags `validate:"..."` and returns the first error encountered.
func ValidateStruct(s interface{}) error {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return errors.New("ValidateStruct expects a struct or pointer to struct")
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("validate")
		if tag == "" {
			continue
		}
		parts := strings.Split(tag, ",")
		fv := v.Field(i)
		var sval string
		if fv.IsValid() && fv.Kind() == reflect.String {
			sval = fv.String()
		}
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "required" {
				if strings.TrimSpace(sval) == "" {
					return errors.New(field.Name + " is required")
				}
			} else if p == "roomok" {
				if sval != "" && !reRoomOK.MatchString(sval) {
					return errors.New(field.Name + " must be a valid room number")
				}
			} else if p == "pinmin" {
				if len(sval) < 4 {
					return errors.New(field.Name + " must be at least 4 characters")
				}
			} else if p == "maxmsg" {
				if len(sval) > 2000 {
					return errors.New(field.Name + " exceeds the maximum length of 2000 characters")
				}
			}
		}
	}
	return nil
}
