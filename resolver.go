/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package wiring

import (
	"fmt"

	"github.com/pkg/errors"
)

/**
Resolves a configured raw value in to a concrete runtime value. Bean references
are dereferenced through the factory, nested definitions are built as inner
beans, managed collections are resolved element by element in to fresh copies.
*/
func (t *beanFactory) resolveValue(beanName string, value interface{}, stack creationStack) (interface{}, error) {

	switch v := value.(type) {

	case BeanReference:
		t.registerDependent(v.BeanName, beanName)
		obj, err := t.getBean(v.BeanName, nil, nil, stack)
		if err != nil {
			return nil, errors.WithMessagef(err, "reference to bean '%s'", v.BeanName)
		}
		return obj, nil

	case *BeanDefinition:
		return t.resolveInnerBean(beanName, v, stack)

	case ManagedList:
		out := make([]interface{}, 0, len(v))
		for i, el := range v {
			resolved, err := t.resolveValue(beanName, el, stack)
			if err != nil {
				return nil, errors.WithMessagef(err, "list element %d", i)
			}
			out = append(out, resolved)
		}
		return out, nil

	case ManagedMap:
		out := make(map[string]interface{}, len(v))
		for key, el := range v {
			resolved, err := t.resolveValue(beanName, el, stack)
			if err != nil {
				return nil, errors.WithMessagef(err, "map entry '%s'", key)
			}
			out[key] = resolved
		}
		return out, nil

	default:
		return value, nil
	}
}

/**
Inner beans are constructed and initialized on the spot, never cached and never
registered for destruction on their own.
*/
func (t *beanFactory) resolveInnerBean(outerName string, definition *BeanDefinition, stack creationStack) (interface{}, error) {

	innerName := fmt.Sprintf("(inner bean of '%s')", outerName)

	merged := definition
	if definition.Parent != "" {
		parentDef, err := t.mergeDefinition(definition.Parent, nil)
		if err != nil {
			return nil, errors.WithMessagef(err, "inner bean of '%s'", outerName)
		}
		merged = mergeDefinitions(parentDef, definition)
	}
	if merged.Type == nil && merged.TypeName != "" {
		typ, ok := t.types.Lookup(merged.TypeName)
		if !ok {
			return nil, errors.Errorf("unknown type name '%s' of inner bean of '%s'", merged.TypeName, outerName)
		}
		merged = merged.copy()
		merged.Type = typ
	}
	if merged.Abstract {
		return nil, errors.Wrapf(ErrBeanIsAbstract, "inner bean of '%s'", outerName)
	}

	obj, err := t.createBean(innerName, merged, nil, stack.push(innerName))
	if err != nil {
		return nil, beanCreationError(merged, innerName, err)
	}

	if factoryBean, ok := obj.(FactoryBean); ok {
		return t.factoryBeanProduct(innerName, factoryBean)
	}
	return obj, nil
}
