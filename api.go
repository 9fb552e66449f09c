/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package wiring

import (
	"reflect"
)

/**
Prefix on a bean name to request the FactoryBean instance itself instead of the object it produces.
*/
const FactoryDereferencePrefix = "&"

type Scope int32

const (
	ScopeSingleton Scope = iota
	ScopePrototype
)

func (t Scope) String() string {
	switch t {
	case ScopeSingleton:
		return "singleton"
	case ScopePrototype:
		return "prototype"
	default:
		return "unknown"
	}
}

type AutowireMode int32

const (
	AutowireNone AutowireMode = iota
	AutowireByName
	AutowireByType
	AutowireConstructor
)

func (t AutowireMode) String() string {
	switch t {
	case AutowireNone:
		return "no"
	case AutowireByName:
		return "byName"
	case AutowireByType:
		return "byType"
	case AutowireConstructor:
		return "constructor"
	default:
		return "unknown"
	}
}

type DependencyCheck int32

const (
	DependencyCheckNone DependencyCheck = iota
	DependencyCheckObjects
	DependencyCheckSimple
	DependencyCheckAll
)

func (t DependencyCheck) String() string {
	switch t {
	case DependencyCheckNone:
		return "none"
	case DependencyCheckObjects:
		return "objects"
	case DependencyCheckSimple:
		return "simple"
	case DependencyCheckAll:
		return "all"
	default:
		return "unknown"
	}
}

type BeanLifecycle int32

const (
	BeanAllocated BeanLifecycle = iota
	BeanCreated
	BeanConstructing
	BeanInitialized
	BeanDestroying
	BeanDestroyed
)

func (t BeanLifecycle) String() string {
	switch t {
	case BeanAllocated:
		return "BeanAllocated"
	case BeanCreated:
		return "BeanCreated"
	case BeanConstructing:
		return "BeanConstructing"
	case BeanInitialized:
		return "BeanInitialized"
	case BeanDestroying:
		return "BeanDestroying"
	case BeanDestroyed:
		return "BeanDestroyed"
	default:
		return "BeanUnknown"
	}
}

var FactoryClass = reflect.TypeOf((*Factory)(nil)).Elem()

type Factory interface {

	/**
	Gets fully constructed bean instance by name.
	Singleton beans are shared, prototype beans are created on every call.
	*/
	GetBean(name string) (interface{}, error)

	/**
	Gets bean instance by name and verifies that the result is assignable to requiredType.
	*/
	GetBeanWithType(name string, requiredType reflect.Type) (interface{}, error)

	/**
	Gets bean instance by name with explicit constructor or factory method arguments.
	Allowed only for prototype definitions created through a factory method.
	*/
	GetBeanWithArgs(name string, args ...interface{}) (interface{}, error)

	/**
	Returns true if this factory or any parent contains the bean definition or a registered singleton.
	*/
	ContainsBean(name string) bool

	/**
	Returns true if the named bean is shared within this factory.
	*/
	IsSingleton(name string) (bool, error)

	/**
	Returns the type of object the named bean would produce, or nil if it can not be determined.
	*/
	GetType(name string) (reflect.Type, error)

	/**
	Returns all known aliases of the bean name.
	*/
	Aliases(name string) []string

	/**
	Gets parent factory if exist.
	*/
	Parent() (Factory, bool)

	/**
	Resolves the named definition with its whole parent definition chain in to a concrete one.
	*/
	MergedDefinition(name string) (*BeanDefinition, error)
}

var ListableFactoryClass = reflect.TypeOf((*ListableFactory)(nil)).Elem()

type ListableFactory interface {
	Factory
	DefinitionSource

	/**
	Registers an externally constructed singleton instance under the given name.
	*/
	RegisterSingleton(name string, obj interface{})

	/**
	Registers an alias for the bean name. Conflicting aliases are errors.
	*/
	RegisterAlias(name, alias string) error

	/**
	Appends the bean post processor to the ordered hook chain.
	*/
	AddPostProcessor(processor BeanPostProcessor)

	/**
	Eagerly creates all non-lazy singleton definitions.
	*/
	PreInstantiateSingletons() error

	/**
	Finds all bean instances assignable to the given type, keyed by bean name.
	Instantiates singleton definitions on demand.
	*/
	BeansOfType(typ reflect.Type) (map[string]interface{}, error)

	/**
	Creates a child factory with this one as parent.
	*/
	Extend() ListableFactory

	/**
	Destroys all cached singleton beans in reverse dependency order. Idempotent.
	*/
	DestroySingletons() error

	/**
	Returns the symbolic type name registry used by definition readers.
	*/
	Types() *TypeRegistry

	/**
	Replaces the value conversion service.
	*/
	SetTypeConverter(converter TypeConverter)

	/**
	Replaces the instantiation strategy.
	*/
	SetInstantiator(instantiator Instantiator)
}

/**
Supplies parsed bean definitions to the factory. Implemented by the factory itself
and consumed by definition readers.
*/
type DefinitionSource interface {

	/**
	Registers the parsed definition under the given name.
	*/
	RegisterDefinition(name string, definition *BeanDefinition) error

	/**
	Returns true if the definition is registered locally, parents not included.
	*/
	ContainsDefinition(name string) bool

	/**
	Returns all locally registered definition names.
	*/
	DefinitionNames() []string
}

/**
Initializing bean is using to run required method on post-construct stage,
after all properties are populated.
*/

var InitializingBeanClass = reflect.TypeOf((*InitializingBean)(nil)).Elem()

type InitializingBean interface {

	/**
	Runs this method automatically after populating bean properties.
	*/
	PostConstruct() error
}

/**
This interface uses to select objects that could free resources on factory shutdown.
*/
var DisposableBeanClass = reflect.TypeOf((*DisposableBean)(nil)).Elem()

type DisposableBean interface {

	/**
	During shutdown would be called for each cached singleton.
	*/
	Destroy() error
}

/**
Bean implementing this interface receives its own name before initialization.
*/
var BeanNameAwareClass = reflect.TypeOf((*BeanNameAware)(nil)).Elem()

type BeanNameAware interface {
	SetBeanName(name string)
}

/**
Bean implementing this interface receives the owning factory before initialization.
*/
var FactoryAwareClass = reflect.TypeOf((*FactoryAware)(nil)).Elem()

type FactoryAware interface {
	SetFactory(factory Factory)
}

/**
The bean object would be created after Object() function call.
All lookups of the plain name return the produced object, use the '&' prefix to get the factory itself.
*/

var FactoryBeanClass = reflect.TypeOf((*FactoryBean)(nil)).Elem()

type FactoryBean interface {

	/**
	Returns an object produced by the factory, and this is the object that will be used on lookups, but not going to be a bean.
	*/
	Object() (interface{}, error)

	/**
	Returns the type of object that this FactoryBean produces.
	*/
	ObjectType() reflect.Type

	/**
	Returns the bean name of object that this FactoryBean produces or empty string if name not defined.
	*/
	ObjectName() string

	/**
	Denotes if the object produced by this FactoryBean is a singleton.
	*/
	Singleton() bool
}

/**
Ordered hook applied around bean initialization.
Both methods must return a non-nil object, usually the given one.
*/

var BeanPostProcessorClass = reflect.TypeOf((*BeanPostProcessor)(nil)).Elem()

type BeanPostProcessor interface {
	BeforeInitialization(name string, obj interface{}) (interface{}, error)

	AfterInitialization(name string, obj interface{}) (interface{}, error)
}

/**
Hook invoked before the factory instantiates the bean. Returning a non-nil object
short-circuits the whole construction pipeline with that object.
*/

var InstantiationAwareBeanPostProcessorClass = reflect.TypeOf((*InstantiationAwareBeanPostProcessor)(nil)).Elem()

type InstantiationAwareBeanPostProcessor interface {
	BeanPostProcessor

	BeforeInstantiation(name string, definition *BeanDefinition) (interface{}, error)
}

/**
Hook invoked before a singleton bean is destroyed on shutdown.
*/

var DestructionAwareBeanPostProcessorClass = reflect.TypeOf((*DestructionAwareBeanPostProcessor)(nil)).Elem()

type DestructionAwareBeanPostProcessor interface {
	BeanPostProcessor

	BeforeDestruction(name string, obj interface{}) error
}

/**
Value conversion service. Presumed not thread-safe when custom converters are
registered, the factory serializes access to it.
*/

var TypeConverterClass = reflect.TypeOf((*TypeConverter)(nil)).Elem()

type TypeConverter interface {

	/**
	Converts the raw value in to the required type, or fails with ErrTypeMismatch.
	*/
	Convert(value interface{}, requiredType reflect.Type) (reflect.Value, error)
}

/**
Instantiation strategy. The default one uses reflection, replace it to apply
method-override or interception behavior transparently.
*/

var InstantiatorClass = reflect.TypeOf((*Instantiator)(nil)).Elem()

type Instantiator interface {

	/**
	Creates a raw instance of the definition type using the no-arg path.
	*/
	Instantiate(definition *BeanDefinition, name string, owner Factory) (interface{}, error)

	/**
	Creates a raw instance by calling the chosen constructor function with resolved arguments.
	*/
	InstantiateWithConstructor(definition *BeanDefinition, name string, owner Factory, constructor reflect.Value, args []reflect.Value) (interface{}, error)

	/**
	Creates a raw instance by calling the chosen factory method with resolved arguments.
	*/
	InstantiateWithFactoryMethod(definition *BeanDefinition, name string, owner Factory, factoryMethod reflect.Value, args []reflect.Value) (interface{}, error)
}
