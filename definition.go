/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package wiring

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

/**
Reference to another bean in the factory by name.
Resolved to the bean instance during value resolution.
*/

type BeanReference struct {
	BeanName string
}

func Ref(beanName string) BeanReference {
	return BeanReference{BeanName: beanName}
}

func (t BeanReference) String() string {
	return fmt.Sprintf("<ref '%s'>", t.BeanName)
}

/**
Managed collections could hold literals, bean references and nested definitions recursively.
Resolved element by element and deep-copied on injection.
*/

type ManagedList []interface{}

func List(values ...interface{}) ManagedList {
	return ManagedList(values)
}

type ManagedMap map[string]interface{}

/**
Holder of a single configured constructor argument value with optional declared type.
*/

type ValueHolder struct {
	Value interface{}

	/**
	Declared type of the value, nil means untyped and open for later coercion.
	*/
	Type reflect.Type
}

/**
Configured constructor argument values, indexed by parameter position or generic.
*/

type ConstructorArgs struct {
	indexed map[int]*ValueHolder
	generic []*ValueHolder
}

func (t *ConstructorArgs) AddIndexed(index int, value interface{}) {
	t.addIndexed(index, &ValueHolder{Value: value})
}

func (t *ConstructorArgs) AddIndexedTyped(index int, value interface{}, typ reflect.Type) {
	t.addIndexed(index, &ValueHolder{Value: value, Type: typ})
}

func (t *ConstructorArgs) addIndexed(index int, holder *ValueHolder) {
	if t.indexed == nil {
		t.indexed = make(map[int]*ValueHolder)
	}
	t.indexed[index] = holder
}

func (t *ConstructorArgs) AddGeneric(value interface{}) {
	t.generic = append(t.generic, &ValueHolder{Value: value})
}

func (t *ConstructorArgs) AddGenericTyped(value interface{}, typ reflect.Type) {
	t.generic = append(t.generic, &ValueHolder{Value: value, Type: typ})
}

func (t *ConstructorArgs) Indexed(index int) (*ValueHolder, bool) {
	holder, ok := t.indexed[index]
	return holder, ok
}

func (t *ConstructorArgs) Empty() bool {
	return len(t.indexed) == 0 && len(t.generic) == 0
}

/**
Minimum number of parameters a constructor or factory method must declare
to consume all configured values.
*/
func (t *ConstructorArgs) MinArgCount() int {
	min := len(t.indexed) + len(t.generic)
	for index := range t.indexed {
		if index+1 > min {
			min = index + 1
		}
	}
	return min
}

func (t *ConstructorArgs) copy() ConstructorArgs {
	var out ConstructorArgs
	if len(t.indexed) > 0 {
		out.indexed = make(map[int]*ValueHolder, len(t.indexed))
		for index, holder := range t.indexed {
			h := *holder
			out.indexed[index] = &h
		}
	}
	for _, holder := range t.generic {
		h := *holder
		out.generic = append(out.generic, &h)
	}
	return out
}

/**
Ordered name-value pair of a configured bean property.
*/

type PropertyValue struct {
	Name  string
	Value interface{}
}

type PropertyValues []PropertyValue

func (t PropertyValues) Get(name string) (interface{}, bool) {
	for _, pv := range t {
		if pv.Name == name {
			return pv.Value, true
		}
	}
	return nil, false
}

func (t PropertyValues) Contains(name string) bool {
	_, ok := t.Get(name)
	return ok
}

/**
Sets the property value keeping the order, same-named entry is replaced in place.
*/
func (t PropertyValues) Set(name string, value interface{}) PropertyValues {
	for i, pv := range t {
		if pv.Name == name {
			t[i].Value = value
			return t
		}
	}
	return append(t, PropertyValue{Name: name, Value: value})
}

func (t PropertyValues) copy() PropertyValues {
	if t == nil {
		return nil
	}
	out := make(PropertyValues, len(t))
	copy(out, t)
	return out
}

/**
Bit flags of the attributes explicitly set on the definition.
Merging overlays only explicitly set attributes over the parent ones.
*/
const (
	setType uint32 = 1 << iota
	setScope
	setLazy
	setAbstract
	setAutowire
	setDependencyCheck
	setDependsOn
	setInitMethod
	setDestroyMethod
	setFactoryMethod
	setConstructors
	setConstructorArgs
)

/**
Describes how to build one category of runtime objects.
Frozen after registration in the factory, merging produces new instances.
*/

type BeanDefinition struct {

	/**
	Pointer to struct type of the bean, could be nil on abstract or symbolic definitions.
	*/
	Type reflect.Type

	/**
	Symbolic type name resolved through the TypeRegistry by definition readers.
	*/
	TypeName string

	/**
	Name of the parent definition for child definitions, empty for root ones.
	*/
	Parent string

	Scope    Scope
	Lazy     bool
	Abstract bool

	Autowire        AutowireMode
	DependencyCheck DependencyCheck

	/**
	Beans that must be fully created before this one, destruction goes the other way.
	*/
	DependsOn []string

	/**
	Names of no-arg methods invoked by reflection after and before the bean lifetime.
	The method could return a single error value.
	*/
	InitMethodName    string
	DestroyMethodName string

	/**
	Factory method instantiation. FactoryBeanName refers to another bean whose method
	named FactoryMethodName produces the instance. With empty FactoryBeanName the
	candidates are the FactoryMethods functions, the static form.
	*/
	FactoryBeanName   string
	FactoryMethodName string
	FactoryMethods    []interface{}

	/**
	Candidate constructor functions of the bean, each a func returning the instance
	with an optional trailing error.
	*/
	Constructors []interface{}

	ConstructorArgs ConstructorArgs

	Properties PropertyValues

	/**
	Description of the configuration source for diagnostics.
	*/
	Resource string

	set uint32
}

func NewDefinition(typ reflect.Type) *BeanDefinition {
	t := &BeanDefinition{Type: typ}
	if typ != nil {
		t.set |= setType
	}
	return t
}

func NewDefinitionByName(typeName string) *BeanDefinition {
	return &BeanDefinition{TypeName: typeName, set: setType}
}

/**
Definition inheriting all unset attributes from the named parent definition.
*/
func ChildDefinition(parent string) *BeanDefinition {
	return &BeanDefinition{Parent: parent}
}

func (t *BeanDefinition) WithScope(scope Scope) *BeanDefinition {
	t.Scope = scope
	t.set |= setScope
	return t
}

func (t *BeanDefinition) WithLazy() *BeanDefinition {
	t.Lazy = true
	t.set |= setLazy
	return t
}

func (t *BeanDefinition) AsAbstract() *BeanDefinition {
	t.Abstract = true
	t.set |= setAbstract
	return t
}

func (t *BeanDefinition) WithAutowire(mode AutowireMode) *BeanDefinition {
	t.Autowire = mode
	t.set |= setAutowire
	return t
}

func (t *BeanDefinition) WithDependencyCheck(mode DependencyCheck) *BeanDefinition {
	t.DependencyCheck = mode
	t.set |= setDependencyCheck
	return t
}

func (t *BeanDefinition) WithDependsOn(names ...string) *BeanDefinition {
	t.DependsOn = names
	t.set |= setDependsOn
	return t
}

func (t *BeanDefinition) WithInitMethod(name string) *BeanDefinition {
	t.InitMethodName = name
	t.set |= setInitMethod
	return t
}

func (t *BeanDefinition) WithDestroyMethod(name string) *BeanDefinition {
	t.DestroyMethodName = name
	t.set |= setDestroyMethod
	return t
}

func (t *BeanDefinition) WithFactoryMethod(factoryBeanName, factoryMethodName string) *BeanDefinition {
	t.FactoryBeanName = factoryBeanName
	t.FactoryMethodName = factoryMethodName
	t.set |= setFactoryMethod
	return t
}

/**
Static factory method candidates, conceptually overloads of the same method.
*/
func (t *BeanDefinition) WithFactoryMethods(funcs ...interface{}) *BeanDefinition {
	t.FactoryMethods = funcs
	t.set |= setFactoryMethod
	return t
}

func (t *BeanDefinition) WithConstructors(funcs ...interface{}) *BeanDefinition {
	t.Constructors = funcs
	t.set |= setConstructors
	return t
}

func (t *BeanDefinition) AddConstructorArg(value interface{}) *BeanDefinition {
	t.ConstructorArgs.AddGeneric(value)
	t.set |= setConstructorArgs
	return t
}

func (t *BeanDefinition) AddTypedConstructorArg(value interface{}, typ reflect.Type) *BeanDefinition {
	t.ConstructorArgs.AddGenericTyped(value, typ)
	t.set |= setConstructorArgs
	return t
}

func (t *BeanDefinition) AddIndexedConstructorArg(index int, value interface{}) *BeanDefinition {
	t.ConstructorArgs.AddIndexed(index, value)
	t.set |= setConstructorArgs
	return t
}

func (t *BeanDefinition) SetProperty(name string, value interface{}) *BeanDefinition {
	t.Properties = t.Properties.Set(name, value)
	return t
}

func (t *BeanDefinition) WithResource(resource string) *BeanDefinition {
	t.Resource = resource
	return t
}

func (t *BeanDefinition) hasFactoryMethod() bool {
	return t.FactoryMethodName != "" || len(t.FactoryMethods) > 0
}

func (t *BeanDefinition) String() string {
	switch {
	case t.Parent != "":
		return fmt.Sprintf("<ChildDefinition parent='%s'>", t.Parent)
	case t.Type != nil:
		return fmt.Sprintf("<Definition %v scope=%s>", t.Type, t.Scope)
	case t.TypeName != "":
		return fmt.Sprintf("<Definition '%s' scope=%s>", t.TypeName, t.Scope)
	default:
		return fmt.Sprintf("<Definition scope=%s>", t.Scope)
	}
}

/**
Deep enough copy for merging, value holders and property list are duplicated,
configured values themselves are shared until resolution.
*/
func (t *BeanDefinition) copy() *BeanDefinition {
	out := *t
	out.DependsOn = append([]string(nil), t.DependsOn...)
	out.FactoryMethods = append([]interface{}(nil), t.FactoryMethods...)
	out.Constructors = append([]interface{}(nil), t.Constructors...)
	out.ConstructorArgs = t.ConstructorArgs.copy()
	out.Properties = t.Properties.copy()
	return &out
}

/**
Overlays explicitly set attributes of the child over the copied concrete parent.
Property values merge by name with child entries winning, everything else is
replaced wholesale when the child sets it.
*/
func mergeDefinitions(parent, child *BeanDefinition) *BeanDefinition {
	out := parent.copy()
	out.Parent = ""
	if child.Resource != "" {
		out.Resource = child.Resource
	}
	if child.set&setType != 0 {
		out.Type = child.Type
		out.TypeName = child.TypeName
	}
	if child.set&setScope != 0 {
		out.Scope = child.Scope
	}
	if child.set&setLazy != 0 {
		out.Lazy = child.Lazy
	}
	// abstract is never inherited, a child of a template is concrete unless it says otherwise
	out.Abstract = child.Abstract
	if child.set&setAutowire != 0 {
		out.Autowire = child.Autowire
	}
	if child.set&setDependencyCheck != 0 {
		out.DependencyCheck = child.DependencyCheck
	}
	if child.set&setDependsOn != 0 {
		out.DependsOn = append([]string(nil), child.DependsOn...)
	}
	if child.set&setInitMethod != 0 {
		out.InitMethodName = child.InitMethodName
	}
	if child.set&setDestroyMethod != 0 {
		out.DestroyMethodName = child.DestroyMethodName
	}
	if child.set&setFactoryMethod != 0 {
		out.FactoryBeanName = child.FactoryBeanName
		out.FactoryMethodName = child.FactoryMethodName
		out.FactoryMethods = append([]interface{}(nil), child.FactoryMethods...)
	}
	if child.set&setConstructors != 0 {
		out.Constructors = append([]interface{}(nil), child.Constructors...)
	}
	if child.set&setConstructorArgs != 0 {
		out.ConstructorArgs = child.ConstructorArgs.copy()
	}
	for _, pv := range child.Properties {
		out.Properties = out.Properties.Set(pv.Name, pv.Value)
	}
	out.set = parent.set | child.set
	return out
}

/**
Sanity checks applied on registration.
*/
func validateDefinition(name string, definition *BeanDefinition) error {
	if definition == nil {
		return errors.Errorf("nil definition for bean '%s'", name)
	}
	if definition.Parent == "" && definition.Type == nil && definition.TypeName == "" &&
		!definition.hasFactoryMethod() && len(definition.Constructors) == 0 && !definition.Abstract {
		return errors.Errorf("definition for bean '%s' has no type, constructors or factory method", name)
	}
	if definition.Type != nil && definition.Type.Kind() != reflect.Ptr {
		return errors.Errorf("definition type for bean '%s' must be a pointer to struct, got '%v'", name, definition.Type)
	}
	if definition.Type != nil && definition.Type.Implements(FactoryBeanClass) && definition.set&setScope != 0 && definition.Scope != ScopeSingleton {
		return errors.Errorf("factory bean definition '%s' can not be %s scoped", name, definition.Scope)
	}
	return nil
}
