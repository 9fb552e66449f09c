/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package wiring

import (
	"reflect"

	"github.com/pkg/errors"
)

/**
Default instantiation strategy based on plain reflection.
Replace it on the factory to apply interception or method-override behavior.
*/

type reflectiveInstantiator struct {
}

func NewReflectiveInstantiator() Instantiator {
	return &reflectiveInstantiator{}
}

func (t *reflectiveInstantiator) Instantiate(definition *BeanDefinition, name string, owner Factory) (interface{}, error) {
	typ := definition.Type
	if typ == nil || typ.Kind() != reflect.Ptr || typ.Elem().Kind() != reflect.Struct {
		return nil, errors.Errorf("can not instantiate bean '%s', type '%v' is not a pointer to struct", name, typ)
	}
	return reflect.New(typ.Elem()).Interface(), nil
}

func (t *reflectiveInstantiator) InstantiateWithConstructor(definition *BeanDefinition, name string, owner Factory, constructor reflect.Value, args []reflect.Value) (interface{}, error) {
	return callCandidate(constructor, args, name)
}

func (t *reflectiveInstantiator) InstantiateWithFactoryMethod(definition *BeanDefinition, name string, owner Factory, factoryMethod reflect.Value, args []reflect.Value) (interface{}, error) {
	return callCandidate(factoryMethod, args, name)
}

func callCandidate(fn reflect.Value, args []reflect.Value, name string) (obj interface{}, err error) {

	defer func() {
		if r := recover(); r != nil {
			obj, err = nil, errors.Errorf("instantiation of bean '%s' recovered with error %v", name, r)
		}
	}()

	out := fn.Call(args)
	if len(out) == 2 {
		if !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
	}
	if !out[0].IsValid() || (canBeNil(out[0].Kind()) && out[0].IsNil()) {
		return nil, errors.Errorf("constructor of bean '%s' produced nil instance", name)
	}
	return out[0].Interface(), nil
}

func canBeNil(k reflect.Kind) bool {
	switch k {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return true
	default:
		return false
	}
}
