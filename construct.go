/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package wiring

import (
	"reflect"
	"sort"

	"github.com/pkg/errors"
)

var errorClass = reflect.TypeOf((*error)(nil)).Elem()

/**
Constructor or factory method candidate described by its ordered parameter types.
Selection logic works over these records only, never over raw reflection objects.
*/
type candidate struct {
	fn         reflect.Value
	paramTypes []reflect.Type
	returnsErr bool
}

func newCandidate(fn interface{}) (*candidate, error) {
	v := reflect.ValueOf(fn)
	return newCandidateValue(v)
}

func newCandidateValue(v reflect.Value) (*candidate, error) {
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, errors.Errorf("candidate must be a function, got '%v'", v.Kind())
	}
	ft := v.Type()
	if ft.IsVariadic() {
		return nil, errors.Errorf("variadic candidate '%v' is not supported", ft)
	}
	switch ft.NumOut() {
	case 1:
		return &candidate{fn: v, paramTypes: paramTypesOf(ft)}, nil
	case 2:
		if ft.Out(1) != errorClass {
			return nil, errors.Errorf("candidate '%v' second result must be error", ft)
		}
		return &candidate{fn: v, paramTypes: paramTypesOf(ft), returnsErr: true}, nil
	default:
		return nil, errors.Errorf("candidate '%v' must return the instance with an optional error", ft)
	}
}

func paramTypesOf(ft reflect.Type) []reflect.Type {
	out := make([]reflect.Type, ft.NumIn())
	for i := 0; i < ft.NumIn(); i++ {
		out[i] = ft.In(i)
	}
	return out
}

/**
Full construction pipeline of one bean: pre-instantiation hooks, instantiation,
eager caching, property population and initialization.
*/
func (t *beanFactory) createBean(name string, definition *BeanDefinition, explicitArgs []interface{}, stack creationStack) (obj interface{}, err error) {

	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("create bean '%s' recovered with error %v", name, r)
		}
	}()

	if verbose != nil {
		verbose.Printf("%sCreate Bean '%s' with %v\n", indent(len(stack)-1), name, definition)
	}

	for _, dependency := range definition.DependsOn {
		t.registerDependent(dependency, name)
		if _, err := t.getBean(dependency, nil, nil, stack); err != nil {
			return nil, errors.WithMessagef(err, "depends-on bean '%s' of bean '%s'", dependency, name)
		}
	}

	for _, pp := range t.processors() {
		if ipp, ok := pp.(InstantiationAwareBeanPostProcessor); ok {
			substitute, err := ipp.BeforeInstantiation(name, definition)
			if err != nil {
				return nil, errors.WithMessagef(err, "before instantiation hook '%T'", ipp)
			}
			if substitute != nil {
				return t.applyAfterInitialization(name, substitute)
			}
		}
	}

	raw, err := t.createInstance(name, definition, explicitArgs, stack)
	if err != nil {
		return nil, err
	}

	t.cacheRawSingleton(name, raw)

	if err := t.populate(name, definition, raw, stack); err != nil {
		return nil, err
	}

	return t.initializeBean(name, definition, raw, stack)
}

/**
Chooses the creation mode: named factory method first, then constructor
autowiring when requested or argument values are configured, plain no-arg
instantiation otherwise.
*/
func (t *beanFactory) createInstance(name string, definition *BeanDefinition, explicitArgs []interface{}, stack creationStack) (interface{}, error) {

	if definition.hasFactoryMethod() {
		return t.instantiateUsingFactoryMethod(name, definition, explicitArgs, stack)
	}

	if definition.Autowire == AutowireConstructor || !definition.ConstructorArgs.Empty() || len(definition.Constructors) > 0 {
		return t.autowireConstructor(name, definition, explicitArgs, stack)
	}

	if definition.Type == nil {
		return nil, errors.Errorf("definition of bean '%s' has no type to instantiate", name)
	}
	return t.instantiator.Instantiate(definition, name, t)
}

func (t *beanFactory) autowireConstructor(name string, definition *BeanDefinition, explicitArgs []interface{}, stack creationStack) (interface{}, error) {

	if len(definition.Constructors) == 0 {
		return nil, errors.Errorf("bean '%s' requires constructor resolution but no constructor candidates are registered", name)
	}

	candidates := make([]*candidate, 0, len(definition.Constructors))
	for _, fn := range definition.Constructors {
		c, err := newCandidate(fn)
		if err != nil {
			return nil, errors.WithMessagef(err, "constructor of bean '%s'", name)
		}
		candidates = append(candidates, c)
	}

	// greedy ordering, more parameters first
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].paramTypes) > len(candidates[j].paramTypes)
	})

	minArgs := definition.ConstructorArgs.MinArgCount()
	if len(explicitArgs) > 0 {
		minArgs = len(explicitArgs)
	}

	autowiring := definition.Autowire == AutowireConstructor

	var chosen *candidate
	var chosenArgs []reflect.Value
	minWeight := 0
	var lastErr error

	for i, c := range candidates {

		if chosen != nil && len(c.paramTypes) < len(chosen.paramTypes) {
			// a working greedy match exists, less greedy ones are never superior
			break
		}

		if len(c.paramTypes) < minArgs {
			return nil, errors.Errorf(
				"constructor '%v' of bean '%s' declares %d parameters but %d argument values are configured, use indexed arguments to disambiguate",
				c.fn.Type(), name, len(c.paramTypes), minArgs)
		}

		args, err := t.buildArgumentArray(name, definition, c.paramTypes, explicitArgs, autowiring, stack)
		if err != nil {
			lastErr = err
			if i == len(candidates)-1 && chosen == nil {
				return nil, err
			}
			continue
		}

		weight := typeDifferenceWeight(c.paramTypes, args)
		if weight < 0 {
			lastErr = errors.Errorf("constructor '%v' of bean '%s' rejected on argument type mismatch", c.fn.Type(), name)
			if i == len(candidates)-1 && chosen == nil {
				return nil, lastErr
			}
			continue
		}

		if chosen == nil || weight < minWeight {
			chosen, chosenArgs, minWeight = c, args, weight
		}
	}

	if chosen == nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, errors.Errorf("no matching constructor found for bean '%s'", name)
	}

	if verbose != nil {
		verbose.Printf("%sConstructor '%v' weight=%d\n", indent(len(stack)-1), chosen.fn.Type(), minWeight)
	}

	return t.instantiator.InstantiateWithConstructor(definition, name, t, chosen.fn, chosenArgs)
}

func (t *beanFactory) instantiateUsingFactoryMethod(name string, definition *BeanDefinition, explicitArgs []interface{}, stack creationStack) (interface{}, error) {

	var candidates []*candidate

	if definition.FactoryBeanName != "" {
		// instance factory method on another bean
		t.registerDependent(definition.FactoryBeanName, name)
		factoryObj, err := t.getBean(definition.FactoryBeanName, nil, nil, stack)
		if err != nil {
			return nil, errors.WithMessagef(err, "factory bean '%s' of bean '%s'", definition.FactoryBeanName, name)
		}
		method := reflect.ValueOf(factoryObj).MethodByName(definition.FactoryMethodName)
		if !method.IsValid() {
			return nil, errors.Errorf("no factory method '%s' on factory bean '%s' of type '%T' for bean '%s'",
				definition.FactoryMethodName, definition.FactoryBeanName, factoryObj, name)
		}
		c, err := newCandidateValue(method)
		if err != nil {
			return nil, errors.WithMessagef(err, "factory method '%s' of bean '%s'", definition.FactoryMethodName, name)
		}
		candidates = append(candidates, c)
	} else {
		// static form, candidates are the registered overloads
		for _, fn := range definition.FactoryMethods {
			c, err := newCandidate(fn)
			if err != nil {
				return nil, errors.WithMessagef(err, "factory method of bean '%s'", name)
			}
			candidates = append(candidates, c)
		}
	}

	minArgs := definition.ConstructorArgs.MinArgCount()
	if len(explicitArgs) > 0 {
		minArgs = len(explicitArgs)
	}

	autowiring := definition.Autowire == AutowireConstructor

	var matching []*candidate
	for _, c := range candidates {
		if len(c.paramTypes) >= minArgs {
			matching = append(matching, c)
		}
	}
	if len(matching) == 0 {
		return nil, errors.Errorf("no matching factory method found for bean '%s' accepting %d arguments", name, minArgs)
	}

	var chosen *candidate
	var chosenArgs []reflect.Value
	minWeight := 0
	var lastErr error

	for i, c := range matching {

		args, err := t.buildArgumentArray(name, definition, c.paramTypes, explicitArgs, autowiring, stack)
		if err != nil {
			lastErr = err
			if i == len(matching)-1 && chosen == nil {
				return nil, err
			}
			continue
		}

		weight := typeDifferenceWeight(c.paramTypes, args)
		if weight < 0 {
			lastErr = errors.Errorf("factory method '%v' of bean '%s' rejected on argument type mismatch", c.fn.Type(), name)
			if i == len(matching)-1 && chosen == nil {
				return nil, lastErr
			}
			continue
		}

		if chosen == nil || weight < minWeight {
			chosen, chosenArgs, minWeight = c, args, weight
		}
	}

	if chosen == nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, errors.Errorf("no matching factory method found for bean '%s'", name)
	}

	if verbose != nil {
		verbose.Printf("%sFactoryMethod '%v' weight=%d\n", indent(len(stack)-1), chosen.fn.Type(), minWeight)
	}

	return t.instantiator.InstantiateWithFactoryMethod(definition, name, t, chosen.fn, chosenArgs)
}

/**
Binds configured values to parameter positions. Every configured value is
consumed at most once per attempt. With constructor autowiring, unmatched
parameters are resolved by type against the local bean set, exactly one
candidate must exist.
*/
func (t *beanFactory) buildArgumentArray(name string, definition *BeanDefinition, paramTypes []reflect.Type, explicitArgs []interface{}, autowiring bool, stack creationStack) ([]reflect.Value, error) {

	if len(explicitArgs) > 0 {
		if len(explicitArgs) != len(paramTypes) {
			return nil, errors.Errorf("bean '%s' got %d explicit arguments for %d parameters", name, len(explicitArgs), len(paramTypes))
		}
		args := make([]reflect.Value, len(paramTypes))
		for i, raw := range explicitArgs {
			converted, err := t.convert(raw, paramTypes[i])
			if err != nil {
				return nil, unsatisfiedArgumentError(name, i, err)
			}
			args[i] = converted
		}
		return args, nil
	}

	used := make(map[*ValueHolder]bool)
	args := make([]reflect.Value, len(paramTypes))

	for i, paramType := range paramTypes {

		holder := t.findArgumentValue(definition, i, paramType, used, !autowiring)

		if holder == nil {
			if !autowiring {
				return nil, unsatisfiedArgumentError(name, i,
					errors.Errorf("ambiguous constructor argument types for parameter '%v', did you specify the correct bean references as arguments", paramType))
			}
			value, err := t.autowireArgumentByType(name, i, paramType, stack)
			if err != nil {
				return nil, err
			}
			args[i] = value
			continue
		}

		used[holder] = true

		resolved, err := t.resolveValue(name, holder.Value, stack)
		if err != nil {
			return nil, unsatisfiedArgumentError(name, i, err)
		}
		converted, err := t.convert(resolved, paramType)
		if err != nil {
			return nil, unsatisfiedArgumentError(name, i, err)
		}
		args[i] = converted
	}

	return args, nil
}

/**
Finds a not yet consumed configured value for the parameter position. Indexed
and type-compatible generic holders go first, untyped generic holders are the
fallback kept open for later coercion.
*/
func (t *beanFactory) findArgumentValue(definition *BeanDefinition, index int, paramType reflect.Type, used map[*ValueHolder]bool, allowUntyped bool) *ValueHolder {

	if holder, ok := definition.ConstructorArgs.Indexed(index); ok && !used[holder] {
		if holder.Type == nil || holder.Type.AssignableTo(paramType) {
			return holder
		}
	}

	for _, holder := range definition.ConstructorArgs.generic {
		if used[holder] {
			continue
		}
		if holder.Type != nil {
			if holder.Type.AssignableTo(paramType) {
				return holder
			}
			continue
		}
		if holder.Value != nil && valueMatchesType(holder.Value, paramType) {
			return holder
		}
	}

	if allowUntyped {
		for _, holder := range definition.ConstructorArgs.generic {
			if !used[holder] && holder.Type == nil {
				return holder
			}
		}
	}

	return nil
}

/**
Configured references and nested definitions stay open until resolution,
literal values must match the parameter type directly.
*/
func valueMatchesType(value interface{}, paramType reflect.Type) bool {
	switch value.(type) {
	case BeanReference, *BeanDefinition, ManagedList, ManagedMap:
		return false
	}
	return reflect.TypeOf(value).AssignableTo(paramType)
}

func (t *beanFactory) autowireArgumentByType(name string, index int, paramType reflect.Type, stack creationStack) (reflect.Value, error) {
	names := t.candidateNamesForType(paramType)
	switch len(names) {
	case 1:
		t.registerDependent(names[0], name)
		obj, err := t.getBean(names[0], nil, nil, stack)
		if err != nil {
			return reflect.Value{}, unsatisfiedArgumentError(name, index, err)
		}
		return reflect.ValueOf(obj), nil
	case 0:
		return reflect.Value{}, unsatisfiedArgumentError(name, index,
			errors.Errorf("no bean of type '%v' found for constructor autowiring", paramType))
	default:
		return reflect.Value{}, unsatisfiedArgumentError(name, index,
			errors.Errorf("ambiguous constructor autowiring, %d beans of type '%v' found: %v", len(names), paramType, names))
	}
}

/**
Numeric distance of the argument set from the parameter types.
Exact matches cost 0, interface satisfaction 2, empty interface 4,
embedded hops add 1 each. Any incompatible argument disqualifies with -1.
*/
func typeDifferenceWeight(paramTypes []reflect.Type, args []reflect.Value) int {
	weight := 0
	for i, paramType := range paramTypes {
		if !args[i].IsValid() {
			continue
		}
		d := typeDistance(args[i].Type(), paramType)
		if d < 0 {
			return -1
		}
		weight += d
	}
	return weight
}

func typeDistance(actual, required reflect.Type) int {
	if actual == required {
		return 0
	}
	if !actual.AssignableTo(required) {
		return -1
	}
	if required.Kind() == reflect.Interface {
		if required.NumMethod() == 0 {
			return 4
		}
		return 2
	}
	return 1 + embeddedDepth(actual, required)
}

/**
Steps up the embedded anonymous field chain from the actual type to the
required one, the Go analog of walking a superclass chain.
*/
func embeddedDepth(actual, required reflect.Type) int {
	st := actual
	if st.Kind() == reflect.Ptr {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return 0
	}
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		if !field.Anonymous {
			continue
		}
		if field.Type == required || field.Type.AssignableTo(required) {
			return 1
		}
		if d := embeddedDepth(field.Type, required); d > 0 {
			return d + 1
		}
	}
	return 0
}
