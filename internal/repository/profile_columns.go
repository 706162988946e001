package repository

import (
	"fmt"
	"sort"
)

// profileColumns is the one place that knows how API field names map onto
// profile table columns. Both directions are derived from it.
var profileColumns = map[string]string{
	"fullName":   "full_name",
	"avatarUrl":  "avatar_url",
	"zodiacSign": "zodiac_sign",
	"birthDate":  "birth_date",
	"birthTime":  "birth_time",
	"birthPlace": "birth_place",
	"skinType":   "skin_type",
	"gender":     "gender",
	"age":        "age",
}

var profileFields = func() map[string]string {
	m := make(map[string]string, len(profileColumns))
	for field, col := range profileColumns {
		m[col] = field
	}
	return m
}()

// UnknownFieldError is returned for patch keys that have no column.
type UnknownFieldError struct {
	Fields []string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown profile fields: %v", e.Fields)
}

// ToProfileColumns converts a camelCase profile patch into snake_case column
// updates. Keys that are not profile fields are rejected as a whole.
func ToProfileColumns(patch map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(patch))
	var unknown []string
	for k, v := range patch {
		col, ok := profileColumns[k]
		if !ok {
			unknown = append(unknown, k)
			continue
		}
		out[col] = v
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &UnknownFieldError{Fields: unknown}
	}
	return out, nil
}

// FromProfileColumns converts snake_case column values back into camelCase
// fields. Columns outside the mapping are dropped.
func FromProfileColumns(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for col, v := range row {
		if field, ok := profileFields[col]; ok {
			out[field] = v
		}
	}
	return out
}
