package tablebrowser

import (
	"fmt"
	"strings"
	"time"

	"github.com/yorunoba/nightdesk-backend/internal/app/model"
)

// Check validates one parsed input value before it is written.
type Check func(v interface{}) error

// RowCheck validates a row as it would be stored after an update.
type RowCheck func(row map[string]interface{}) error

// Optional lets nil and the empty string through before running c.
func Optional(c Check) Check {
	return func(v interface{}) error {
		if v == nil || v == "" {
			return nil
		}
		return c(v)
	}
}

func NotBlank() Check {
	return func(v interface{}) error {
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return fmt.Errorf("must not be blank")
		}
		return nil
	}
}

func OneOf(values ...string) Check {
	return func(v interface{}) error {
		s, ok := v.(string)
		if ok {
			for _, allowed := range values {
				if s == allowed {
					return nil
				}
			}
		}
		return fmt.Errorf("must be one of %s", strings.Join(values, ", "))
	}
}

func IntRange(min, max int64) Check {
	return func(v interface{}) error {
		n, ok := v.(int64)
		if !ok || n < min || n > max {
			return fmt.Errorf("must be between %d and %d", min, max)
		}
		return nil
	}
}

// Date accepts YYYY-MM-DD.
func Date() Check {
	return func(v interface{}) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("must be a date")
		}
		_, err := model.ParseDate(s)
		return err
	}
}

// Clock accepts HH:MM with hours past 24 for after-midnight times.
func Clock() Check {
	return func(v interface{}) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("must be a time")
		}
		_, err := model.ParseClock(s)
		return err
	}
}

// ExactlyOne requires one and only one of columns to be set.
func ExactlyOne(columns ...string) RowCheck {
	return func(row map[string]interface{}) error {
		set := 0
		for _, c := range columns {
			if row[c] != nil {
				set++
			}
		}
		if set != 1 {
			return fmt.Errorf("exactly one of %s must be set", strings.Join(columns, ", "))
		}
		return nil
	}
}

// NotBefore requires row[later] to be empty or not earlier than row[earlier].
func NotBefore(later, earlier string) RowCheck {
	return func(row map[string]interface{}) error {
		end, ok := asTime(row[later])
		if !ok {
			return nil
		}
		start, ok := asTime(row[earlier])
		if ok && end.Before(start) {
			return fmt.Errorf("%s is before %s", later, earlier)
		}
		return nil
	}
}

// asTime reads a datetime or YYYY-MM-DD value as scanned or parsed.
func asTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if t == "" {
			return time.Time{}, false
		}
		if d, err := model.ParseDate(t); err == nil {
			return d, true
		}
		if parsed, err := parseStoredTime(t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
