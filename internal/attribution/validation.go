package attribution

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/creatorhub/backend/internal/models"
)

const (
	MaxEventNameLen = 64
	MaxValues       = 25
	MaxKeyLen       = 64
	MaxValueLen     = 256
)

var eventNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidateEvent checks an event name and its flat key/value payload.
func ValidateEvent(name string, values map[string]string) []models.FieldError {
	var errs []models.FieldError
	switch {
	case name == "":
		errs = append(errs, models.FieldError{Field: "event_name", Msg: "required"})
	case len(name) > MaxEventNameLen:
		errs = append(errs, models.FieldError{Field: "event_name", Msg: fmt.Sprintf("max length %d", MaxEventNameLen)})
	case !eventNamePattern.MatchString(name):
		errs = append(errs, models.FieldError{Field: "event_name", Msg: "letters, digits and underscores, starting with a letter"})
	}

	if len(values) > MaxValues {
		errs = append(errs, models.FieldError{Field: "values", Msg: fmt.Sprintf("max %d items", MaxValues)})
		return errs
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == "" {
			errs = append(errs, models.FieldError{Field: "values", Msg: "keys must be non-empty"})
			continue
		}
		if len(k) > MaxKeyLen {
			errs = append(errs, models.FieldError{Field: "values." + k[:MaxKeyLen], Msg: fmt.Sprintf("key max length %d", MaxKeyLen)})
		}
		if len(values[k]) > MaxValueLen {
			errs = append(errs, models.FieldError{Field: "values." + k, Msg: fmt.Sprintf("max length %d", MaxValueLen)})
		}
	}
	return errs
}
