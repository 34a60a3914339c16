package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
)

// LoadEnv overlays the environment variables named by the `env` tags of
// Config onto cfg. Unset or empty variables leave the field alone.
func LoadEnv(cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i, n := 0, v.NumField(); i < n; i++ {
		field := v.Field(i)
		name := t.Field(i).Tag.Get("env")
		if name == "" || !field.CanSet() {
			continue
		}
		value := os.Getenv(name)
		if value == "" {
			continue
		}
		if err := setField(field, value, name); err != nil {
			return err
		}
	}
	return nil
}

func setField(field reflect.Value, value, envVar string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &InvalidValueError{Param: envVar, Value: value, Reason: "not a boolean"}
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported type %s for %s", field.Kind(), envVar)
	}
	return nil
}
