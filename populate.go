/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package wiring

import (
	"reflect"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

/**
Writable property of the bean struct. Fields tagged `wire:"-"` are excluded
from autowiring and dependency checks.
*/
type beanProperty struct {
	name     string
	fieldNum int
	typ      reflect.Type
	excluded bool
}

func beanProperties(typ reflect.Type) []beanProperty {
	if typ.Kind() != reflect.Ptr || typ.Elem().Kind() != reflect.Struct {
		return nil
	}
	class := typ.Elem()
	var out []beanProperty
	for j := 0; j < class.NumField(); j++ {
		field := class.Field(j)
		if field.PkgPath != "" || field.Anonymous {
			continue
		}
		out = append(out, beanProperty{
			name:     field.Name,
			fieldNum: j,
			typ:      field.Type,
			excluded: field.Tag.Get("wire") == "-",
		})
	}
	return out
}

/**
Applies explicit property values plus autowired ones, runs the dependency check
against the final effective property set, then assigns everything on to the bean.
*/
func (t *beanFactory) populate(name string, definition *BeanDefinition, obj interface{}, stack creationStack) error {

	properties := beanProperties(reflect.TypeOf(obj))

	values := definition.Properties.copy()

	switch definition.Autowire {
	case AutowireByName:
		autowired, err := t.autowireByName(name, properties, values, stack)
		if err != nil {
			return err
		}
		values = autowired
	case AutowireByType:
		autowired, err := t.autowireByType(name, properties, values, stack)
		if err != nil {
			return err
		}
		values = autowired
	}

	if err := checkDependencies(name, definition, properties, values); err != nil {
		return err
	}

	if len(values) == 0 {
		return nil
	}

	return t.applyPropertyValues(name, definition, obj, properties, values, stack)
}

/**
Unsatisfied non-simple writable properties, the autowiring candidates.
*/
func unsatisfiedNonSimpleProperties(properties []beanProperty, values PropertyValues) []beanProperty {
	var out []beanProperty
	for _, p := range properties {
		if p.excluded || values.Contains(p.name) || isSimpleType(p.typ) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (t *beanFactory) autowireByName(name string, properties []beanProperty, values PropertyValues, stack creationStack) (PropertyValues, error) {
	for _, p := range unsatisfiedNonSimpleProperties(properties, values) {
		beanName, ok := t.matchBeanName(p.name)
		if !ok {
			continue
		}
		t.registerDependent(beanName, name)
		obj, err := t.getBean(beanName, nil, nil, stack)
		if err != nil {
			return nil, unsatisfiedPropertyError(name, p.name, err)
		}
		if verbose != nil {
			verbose.Printf("%sAutowire by name property '%s' of bean '%s' with bean '%s'\n", indent(len(stack)-1), p.name, name, beanName)
		}
		values = values.Set(p.name, obj)
	}
	return values, nil
}

/**
Property 'UserService' matches bean 'userService' first, then the exact field name.
*/
func (t *beanFactory) matchBeanName(propertyName string) (string, bool) {
	if lower := lowerFirst(propertyName); t.ContainsBean(lower) {
		return lower, true
	}
	if t.ContainsBean(propertyName) {
		return propertyName, true
	}
	return "", false
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

func (t *beanFactory) autowireByType(name string, properties []beanProperty, values PropertyValues, stack creationStack) (PropertyValues, error) {
	for _, p := range unsatisfiedNonSimpleProperties(properties, values) {
		names := t.candidateNamesForType(p.typ)
		switch len(names) {
		case 0:
			continue
		case 1:
			t.registerDependent(names[0], name)
			obj, err := t.getBean(names[0], nil, nil, stack)
			if err != nil {
				return nil, unsatisfiedPropertyError(name, p.name, err)
			}
			if verbose != nil {
				verbose.Printf("%sAutowire by type property '%s' of bean '%s' with bean '%s'\n", indent(len(stack)-1), p.name, name, names[0])
			}
			values = values.Set(p.name, obj)
		default:
			return nil, unsatisfiedPropertyError(name, p.name,
				errors.Errorf("ambiguous autowire by type '%v', %d candidate beans found: %v", p.typ, len(names), names))
		}
	}
	return values, nil
}

/**
Classifies every still unset writable property and fails on the first one the
dependency check mode demands.
*/
func checkDependencies(name string, definition *BeanDefinition, properties []beanProperty, values PropertyValues) error {
	mode := definition.DependencyCheck
	if mode == DependencyCheckNone {
		return nil
	}
	for _, p := range properties {
		if p.excluded || values.Contains(p.name) {
			continue
		}
		simple := isSimpleType(p.typ)
		unsatisfied := mode == DependencyCheckAll ||
			(mode == DependencyCheckSimple && simple) ||
			(mode == DependencyCheckObjects && !simple)
		if unsatisfied {
			return unsatisfiedPropertyError(name, p.name,
				errors.Errorf("dependency check mode '%s' requires a value for property of type '%v'", mode, p.typ))
		}
	}
	return nil
}

func (t *beanFactory) applyPropertyValues(name string, definition *BeanDefinition, obj interface{}, properties []beanProperty, values PropertyValues, stack creationStack) error {

	valuePtr := reflect.ValueOf(obj)
	if valuePtr.Kind() != reflect.Ptr || valuePtr.Elem().Kind() != reflect.Struct {
		return beanCreationError(definition, name,
			errors.Errorf("error setting property values: bean of type '%T' is not a pointer to struct", obj))
	}
	value := valuePtr.Elem()

	byName := make(map[string]beanProperty, len(properties))
	for _, p := range properties {
		byName[p.name] = p
	}

	for _, pv := range values {
		p, ok := byName[pv.Name]
		if !ok {
			return beanCreationError(definition, name,
				errors.Errorf("error setting property values: no writable property '%s' on type '%T'", pv.Name, obj))
		}

		resolved, err := t.resolveValue(name, pv.Value, stack)
		if err != nil {
			return beanCreationError(definition, name,
				errors.WithMessagef(err, "error setting property values: property '%s'", pv.Name))
		}

		converted, err := t.convert(resolved, p.typ)
		if err != nil {
			return beanCreationError(definition, name,
				errors.WithMessagef(err, "error setting property values: property '%s'", pv.Name))
		}

		field := value.Field(p.fieldNum)
		if !field.CanSet() {
			return beanCreationError(definition, name,
				errors.Errorf("error setting property values: property '%s' is not settable", pv.Name))
		}
		field.Set(converted)
	}

	return nil
}
