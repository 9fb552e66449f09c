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
Fixed initialization order: name aware, factory aware, before-init hooks,
PostConstruct, custom init method, after-init hooks.
*/
func (t *beanFactory) initializeBean(name string, definition *BeanDefinition, obj interface{}, stack creationStack) (interface{}, error) {

	if aware, ok := obj.(BeanNameAware); ok {
		aware.SetBeanName(name)
	}
	if aware, ok := obj.(FactoryAware); ok {
		aware.SetFactory(t)
	}

	for _, pp := range t.processors() {
		next, err := pp.BeforeInitialization(name, obj)
		if err != nil {
			return nil, errors.WithMessagef(err, "before initialization hook '%T'", pp)
		}
		if next == nil {
			return nil, errors.Errorf("before initialization hook '%T' returned nil for bean '%s'", pp, name)
		}
		obj = next
	}

	if initializer, ok := obj.(InitializingBean); ok {
		if verbose != nil {
			verbose.Printf("%sPostConstruct Bean '%s'\n", indent(len(stack)-1), name)
		}
		if err := initializer.PostConstruct(); err != nil {
			return nil, errors.WithMessagef(err, "post construct of bean '%s'", name)
		}
	}

	if definition.InitMethodName != "" {
		if verbose != nil {
			verbose.Printf("%sInitMethod '%s' of bean '%s'\n", indent(len(stack)-1), definition.InitMethodName, name)
		}
		if err := invokeNamedMethod(obj, definition.InitMethodName); err != nil {
			return nil, errors.WithMessagef(err, "init method '%s' of bean '%s'", definition.InitMethodName, name)
		}
	}

	return t.applyAfterInitialization(name, obj)
}

func (t *beanFactory) applyAfterInitialization(name string, obj interface{}) (interface{}, error) {
	for _, pp := range t.processors() {
		next, err := pp.AfterInitialization(name, obj)
		if err != nil {
			return nil, errors.WithMessagef(err, "after initialization hook '%T'", pp)
		}
		if next == nil {
			return nil, errors.Errorf("after initialization hook '%T' returned nil for bean '%s'", pp, name)
		}
		obj = next
	}
	return obj, nil
}

/**
Destruction hooks of a single bean. Errors are logged and swallowed so that
shutdown proceeds for all remaining beans.
*/
func (t *beanFactory) destroyBean(d *disposable) {

	defer func() {
		if r := recover(); r != nil {
			if verbose != nil {
				verbose.Printf("Destroy bean '%s' recovered with error: %v\n", d.name, r)
			}
		}
	}()

	if verbose != nil {
		verbose.Printf("Destroy bean '%s' with type '%T'\n", d.name, d.obj)
	}

	for i := len(d.processors) - 1; i >= 0; i-- {
		if err := d.processors[i].BeforeDestruction(d.name, d.obj); err != nil && verbose != nil {
			verbose.Printf("Before destruction hook '%T' of bean '%s' error: %v\n", d.processors[i], d.name, err)
		}
	}

	if dis, ok := d.obj.(DisposableBean); ok {
		if err := dis.Destroy(); err != nil && verbose != nil {
			verbose.Printf("Destroy of bean '%s' error: %v\n", d.name, err)
		}
	}

	if d.definition != nil && d.definition.DestroyMethodName != "" {
		if err := invokeNamedMethod(d.obj, d.definition.DestroyMethodName); err != nil && verbose != nil {
			verbose.Printf("Destroy method '%s' of bean '%s' error: %v\n", d.definition.DestroyMethodName, d.name, err)
		}
	}
}

/**
Invokes a no-arg method by name through reflection, the method could return
a single error value.
*/
func invokeNamedMethod(obj interface{}, methodName string) error {
	method := reflect.ValueOf(obj).MethodByName(methodName)
	if !method.IsValid() {
		return errors.Errorf("no such method '%s' on type '%T'", methodName, obj)
	}
	mt := method.Type()
	if mt.NumIn() != 0 {
		return errors.Errorf("method '%s' on type '%T' must have no arguments", methodName, obj)
	}
	out := method.Call(nil)
	if len(out) > 0 {
		last := out[len(out)-1]
		if last.Type() == errorClass && !last.IsNil() {
			return last.Interface().(error)
		}
	}
	return nil
}
