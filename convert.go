/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package wiring

import (
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	durationClass   = reflect.TypeOf(time.Millisecond)
	timeClass       = reflect.TypeOf(time.Time{})
	osFileModeClass = reflect.TypeOf(os.FileMode(0777))
	fsFileModeClass = reflect.TypeOf(fs.FileMode(0777))
)

/**
Default value conversion service. Passes through assignable values, widens
numerics and coerces strings in to leaf value types.
*/

type defaultConverter struct {
}

func NewDefaultConverter() TypeConverter {
	return &defaultConverter{}
}

func (t *defaultConverter) Convert(value interface{}, requiredType reflect.Type) (reflect.Value, error) {

	if value == nil {
		switch requiredType.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return reflect.Zero(requiredType), nil
		}
		return reflect.Value{}, errors.Wrapf(ErrTypeMismatch, "nil value for required type '%v'", requiredType)
	}

	v := reflect.ValueOf(value)
	actual := v.Type()

	if actual == requiredType || actual.AssignableTo(requiredType) {
		return v, nil
	}

	if s, ok := value.(string); ok {
		return convertString(s, requiredType, "")
	}

	if isArray(requiredType) && isArray(actual) {
		slice := reflect.MakeSlice(requiredType, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			el, err := t.Convert(v.Index(i).Interface(), requiredType.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			slice = reflect.Append(slice, el)
		}
		return slice, nil
	}

	if requiredType.Kind() == reflect.Map && actual.Kind() == reflect.Map {
		table := reflect.MakeMapWithSize(requiredType, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key, err := t.Convert(iter.Key().Interface(), requiredType.Key())
			if err != nil {
				return reflect.Value{}, err
			}
			el, err := t.Convert(iter.Value().Interface(), requiredType.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			table.SetMapIndex(key, el)
		}
		return table, nil
	}

	if isNumeric(actual) && isNumeric(requiredType) && actual.ConvertibleTo(requiredType) {
		return v.Convert(requiredType), nil
	}

	if isString(requiredType) {
		return reflect.ValueOf(fmt.Sprintf("%v", value)).Convert(requiredType), nil
	}

	if actual.ConvertibleTo(requiredType) && actual.Kind() == requiredType.Kind() {
		return v.Convert(requiredType), nil
	}

	return reflect.Value{}, errors.Wrapf(ErrTypeMismatch, "can not convert value of type '%v' to required type '%v'", actual, requiredType)
}

func convertString(s string, t reflect.Type, layout string) (val reflect.Value, err error) {
	var v interface{}

	switch {

	case isArray(t):
		parts := trimSplit(s, ";")
		slice := reflect.MakeSlice(t, 0, len(parts))
		for _, s := range parts {
			val, err := convertString(s, t.Elem(), layout)
			if err != nil {
				return slice, err
			}
			slice = reflect.Append(slice, val)
		}
		return slice, nil

	case isDuration(t):
		v, err = time.ParseDuration(s)

	case isTime(t):
		if layout == "" {
			layout = time.RFC3339
		}
		v, err = time.Parse(layout, s)

	case isFileMode(t):
		v, err = parseFileMode(s), nil

	case isBool(t):
		v, err = strconv.ParseBool(s)

	case isString(t):
		v, err = s, nil

	case isFloat(t):
		v, err = strconv.ParseFloat(s, 64)

	case isInt(t):
		v, err = strconv.ParseInt(s, 10, 64)

	case isUint(t):
		v, err = strconv.ParseUint(s, 10, 64)

	default:
		return reflect.Zero(t), errors.Wrapf(ErrTypeMismatch, "unsupported string coercion to type '%v'", t)
	}

	if err != nil {
		return reflect.Zero(t), errors.Wrapf(ErrTypeMismatch, "parse '%s' as '%v': %v", s, t, err)
	}

	return reflect.ValueOf(v).Convert(t), nil
}

func parseFileMode(s string) os.FileMode {
	mode, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0
	}
	return os.FileMode(mode)
}

/**
Simple types are leaf value types excluded from autowiring consideration
and classified as 'simple' by the dependency check.
*/
func isSimpleType(t reflect.Type) bool {
	if t == durationClass || t == timeClass || t == osFileModeClass || t == fsFileModeClass {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice, reflect.Array:
		return isSimpleType(t.Elem())
	default:
		return false
	}
}

func isBool(t reflect.Type) bool {
	return t.Kind() == reflect.Bool
}

func isString(t reflect.Type) bool {
	return t.Kind() == reflect.String
}

func isFloat(t reflect.Type) bool {
	return t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64
}

func isInt(t reflect.Type) bool {
	return t.Kind() == reflect.Int || t.Kind() == reflect.Int8 || t.Kind() == reflect.Int16 || t.Kind() == reflect.Int32 || t.Kind() == reflect.Int64
}

func isUint(t reflect.Type) bool {
	return t.Kind() == reflect.Uint || t.Kind() == reflect.Uint8 || t.Kind() == reflect.Uint16 || t.Kind() == reflect.Uint32 || t.Kind() == reflect.Uint64
}

func isNumeric(t reflect.Type) bool {
	return isInt(t) || isUint(t) || isFloat(t)
}

func isDuration(t reflect.Type) bool {
	return t == durationClass
}

func isTime(t reflect.Type) bool {
	return t == timeClass
}

func isFileMode(t reflect.Type) bool {
	return t == osFileModeClass || t == fsFileModeClass
}

func isArray(t reflect.Type) bool {
	return t.Kind() == reflect.Array || t.Kind() == reflect.Slice
}

func trimSplit(s string, sep string) []string {
	var a []string
	for _, v := range strings.Split(s, sep) {
		if v = strings.TrimSpace(v); v != "" {
			a = append(a, v)
		}
	}
	return a
}
