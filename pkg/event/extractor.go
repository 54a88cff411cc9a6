package event

import (
	"reflect"
	"strings"
)

// Changes compares two structs of the same type field by field, keyed by json
// name. Only fields whose values differ are reported, as {"old", "new"} pairs.
func Changes(old, new interface{}) map[string]interface{} {
	changes := make(map[string]interface{})
	if old == nil || new == nil {
		return changes
	}

	oldFields := fields(old)
	for name, newValue := range fields(new) {
		oldValue, exists := oldFields[name]
		if !exists {
			continue
		}
		if !reflect.DeepEqual(oldValue, newValue) {
			changes[name] = map[string]interface{}{
				"old": oldValue,
				"new": newValue,
			}
		}
	}
	return changes
}

func fields(obj interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	val := reflect.ValueOf(obj)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return result
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return result
	}
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name := strings.Split(field.Tag.Get("json"), ",")[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(field.Name)
		}

		v := val.Field(i)
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				result[name] = nil
				continue
			}
			v = v.Elem()
		}
		result[name] = v.Interface()
	}
	return result
}
