/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package wiring

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNoSuchDefinition    = errors.New("no such bean definition")
	ErrBeanIsAbstract      = errors.New("bean definition is abstract")
	ErrCurrentlyInCreation = errors.New("bean is currently in creation")
	ErrNotOfRequiredType   = errors.New("bean is not of required type")
	ErrTypeMismatch        = errors.New("type mismatch")
	ErrDefinitionExists    = errors.New("bean definition already registered")
	ErrAliasExists         = errors.New("bean alias already registered")
)

/**
Wraps any lower-level failure during bean construction with the bean name and
resource description attached.
*/

type BeanCreationError struct {
	BeanName string
	Resource string
	Err      error
}

func (t *BeanCreationError) Error() string {
	if t.Resource != "" {
		return fmt.Sprintf("error creating bean '%s' defined in %s: %v", t.BeanName, t.Resource, t.Err)
	}
	return fmt.Sprintf("error creating bean '%s': %v", t.BeanName, t.Err)
}

func (t *BeanCreationError) Unwrap() error {
	return t.Err
}

func (t *BeanCreationError) Cause() error {
	return t.Err
}

func beanCreationError(definition *BeanDefinition, name string, err error) error {
	var cause *BeanCreationError
	if errors.As(err, &cause) && cause.BeanName == name {
		return err
	}
	var resource string
	if definition != nil {
		resource = definition.Resource
	}
	return &BeanCreationError{BeanName: name, Resource: resource, Err: err}
}

/**
Autowiring or dependency check could not satisfy a constructor argument or property.
Either Argument or Property identifies the offender.
*/

type UnsatisfiedDependencyError struct {
	BeanName string
	Argument string
	Property string
	Err      error
}

func (t *UnsatisfiedDependencyError) Error() string {
	if t.Argument != "" {
		return fmt.Sprintf("unsatisfied dependency of bean '%s' expressed through constructor argument %s: %v", t.BeanName, t.Argument, t.Err)
	}
	return fmt.Sprintf("unsatisfied dependency of bean '%s' expressed through property '%s': %v", t.BeanName, t.Property, t.Err)
}

func (t *UnsatisfiedDependencyError) Unwrap() error {
	return t.Err
}

func (t *UnsatisfiedDependencyError) Cause() error {
	return t.Err
}

func unsatisfiedArgumentError(name string, index int, err error) error {
	return &UnsatisfiedDependencyError{BeanName: name, Argument: fmt.Sprintf("with index %d", index), Err: err}
}

func unsatisfiedPropertyError(name string, property string, err error) error {
	return &UnsatisfiedDependencyError{BeanName: name, Property: property, Err: err}
}
