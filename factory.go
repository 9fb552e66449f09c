/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package wiring

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

type singletonState int32

const (
	stateInCreation singletonState = iota
	stateComplete
)

/**
Tri-state singleton cache entry. Absence in the map means not started,
stateInCreation with a non-nil obj holds the eagerly cached raw instance
used to resolve reference cycles.
*/
type singletonEntry struct {
	state singletonState
	obj   interface{}
}

/**
Registration of a singleton that qualifies for destruction on shutdown.
*/
type disposable struct {
	name       string
	obj        interface{}
	definition *BeanDefinition
	processors []DestructionAwareBeanPostProcessor
}

/**
Chain of bean names under creation on the current logical call stack.
Used to tell a supported reference cycle from an unsupported re-entrant one.
*/
type creationStack []string

func (t creationStack) contains(name string) bool {
	for _, n := range t {
		if n == name {
			return true
		}
	}
	return false
}

func (t creationStack) push(name string) creationStack {
	out := make(creationStack, len(t), len(t)+1)
	copy(out, t)
	return append(out, name)
}

func (t creationStack) String() string {
	var out strings.Builder
	n := len(t)
	for i := 0; i < n; i++ {
		if i > 0 {
			out.WriteString("->")
		}
		out.WriteString(t[i])
	}
	return out.String()
}

type beanFactory struct {
	parent *beanFactory

	registry *definitionRegistry
	types    *TypeRegistry

	/**
	Guards singletons, disposables and dependents. Creation itself runs outside
	the lock, waiters block on cond until the entry completes or rolls back.
	*/
	mu   sync.Mutex
	cond *sync.Cond

	singletons      map[string]*singletonEntry
	disposables     map[string]*disposable
	disposableOrder []string

	/**
	Dependency name to the ordered list of dependent bean names.
	Dependents are destroyed before the dependency.
	*/
	dependents map[string][]string

	/**
	Singleton objects produced by factory beans, keyed by factory bean name.
	*/
	factoryProducts map[string]interface{}

	mergedMu sync.Mutex
	merged   map[string]*BeanDefinition

	postProcessors []BeanPostProcessor

	converter    TypeConverter
	converterMu  sync.Mutex
	instantiator Instantiator
}

func New() ListableFactory {
	return newBeanFactory(nil)
}

func newBeanFactory(parent *beanFactory) *beanFactory {
	t := &beanFactory{
		parent:          parent,
		registry:        newDefinitionRegistry(),
		singletons:      make(map[string]*singletonEntry),
		disposables:     make(map[string]*disposable),
		dependents:      make(map[string][]string),
		factoryProducts: make(map[string]interface{}),
		merged:          make(map[string]*BeanDefinition),
		converter:       NewDefaultConverter(),
		instantiator:    NewReflectiveInstantiator(),
	}
	t.cond = sync.NewCond(&t.mu)
	if parent != nil {
		t.types = parent.types.extend()
	} else {
		t.types = NewTypeRegistry()
	}
	return t
}

func (t *beanFactory) Extend() ListableFactory {
	return newBeanFactory(t)
}

func (t *beanFactory) Parent() (Factory, bool) {
	if t.parent != nil {
		return t.parent, true
	}
	return nil, false
}

func (t *beanFactory) Types() *TypeRegistry {
	return t.types
}

func (t *beanFactory) SetTypeConverter(converter TypeConverter) {
	t.converterMu.Lock()
	defer t.converterMu.Unlock()
	t.converter = converter
}

func (t *beanFactory) SetInstantiator(instantiator Instantiator) {
	t.instantiator = instantiator
}

/**
The conversion service is presumed not thread-safe, serialize access to it.
*/
func (t *beanFactory) convert(value interface{}, requiredType reflect.Type) (reflect.Value, error) {
	t.converterMu.Lock()
	defer t.converterMu.Unlock()
	return t.converter.Convert(value, requiredType)
}

func (t *beanFactory) RegisterDefinition(name string, definition *BeanDefinition) error {
	return t.registry.register(name, definition)
}

func (t *beanFactory) ContainsDefinition(name string) bool {
	return t.registry.contains(name)
}

func (t *beanFactory) DefinitionNames() []string {
	return t.registry.names()
}

func (t *beanFactory) RegisterAlias(name, alias string) error {
	return t.registry.registerAlias(name, alias)
}

func (t *beanFactory) Aliases(name string) []string {
	return t.registry.aliasesOf(t.registry.canonicalName(name))
}

func (t *beanFactory) RegisterSingleton(name string, obj interface{}) {
	t.mu.Lock()
	t.singletons[name] = &singletonEntry{state: stateComplete, obj: obj}
	t.mu.Unlock()
	if _, ok := obj.(DisposableBean); ok {
		t.registerDisposable(name, obj, nil)
	}
}

func (t *beanFactory) AddPostProcessor(processor BeanPostProcessor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.postProcessors = append(t.postProcessors, processor)
}

func (t *beanFactory) processors() []BeanPostProcessor {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]BeanPostProcessor(nil), t.postProcessors...)
}

func (t *beanFactory) destructionProcessors() []DestructionAwareBeanPostProcessor {
	t.mu.Lock()
	defer t.mu.Unlock()
	var list []DestructionAwareBeanPostProcessor
	for _, pp := range t.postProcessors {
		if dpp, ok := pp.(DestructionAwareBeanPostProcessor); ok {
			list = append(list, dpp)
		}
	}
	return list
}

func (t *beanFactory) GetBean(name string) (interface{}, error) {
	return t.getBean(name, nil, nil, nil)
}

func (t *beanFactory) GetBeanWithType(name string, requiredType reflect.Type) (interface{}, error) {
	return t.getBean(name, requiredType, nil, nil)
}

func (t *beanFactory) GetBeanWithArgs(name string, args ...interface{}) (interface{}, error) {
	return t.getBean(name, nil, args, nil)
}

/**
Main lookup and creation path. The stack is the chain of bean names whose
construction is in progress on this logical call chain.
*/
func (t *beanFactory) getBean(name string, requiredType reflect.Type, explicitArgs []interface{}, stack creationStack) (interface{}, error) {

	factoryDeref := strings.HasPrefix(name, FactoryDereferencePrefix)
	if factoryDeref {
		name = name[len(FactoryDereferencePrefix):]
	}
	name = t.registry.canonicalName(name)

	if verbose != nil {
		verbose.Printf("%sGetBean '%s'\n", indent(len(stack)), name)
	}

	t.mu.Lock()
	for {
		entry, ok := t.singletons[name]
		if !ok {
			break
		}
		if entry.state == stateComplete {
			obj := entry.obj
			t.mu.Unlock()
			return t.finishBean(name, obj, requiredType, factoryDeref, stack)
		}
		if stack.contains(name) {
			if entry.obj != nil {
				// supported cycle, hand out the eagerly cached raw instance
				raw := entry.obj
				t.mu.Unlock()
				return t.checkRequiredType(name, raw, requiredType)
			}
			t.mu.Unlock()
			return nil, errors.Wrapf(ErrCurrentlyInCreation, "bean '%s' requested again by chain %s", name, stack.push(name))
		}
		// another goroutine is creating this singleton, block until it finishes or rolls back
		t.cond.Wait()
	}
	t.mu.Unlock()

	if !t.registry.contains(name) {
		if t.parent != nil {
			return t.parent.getBean(name, requiredType, explicitArgs, stack)
		}
		return nil, errors.Wrapf(ErrNoSuchDefinition, "bean '%s'", name)
	}

	merged, err := t.MergedDefinition(name)
	if err != nil {
		return nil, err
	}

	if merged.Abstract {
		return nil, errors.Wrapf(ErrBeanIsAbstract, "bean '%s'", name)
	}

	if requiredType != nil && merged.Type != nil && !merged.hasFactoryMethod() && !merged.Type.Implements(FactoryBeanClass) {
		if !merged.Type.AssignableTo(requiredType) {
			return nil, errors.Wrapf(ErrNotOfRequiredType, "bean '%s' of type '%v' where '%v' is required", name, merged.Type, requiredType)
		}
	}

	if len(explicitArgs) > 0 && !(merged.Scope == ScopePrototype && merged.hasFactoryMethod()) {
		return nil, errors.Errorf("explicit arguments for bean '%s' are only allowed on prototype factory method definitions", name)
	}

	if merged.Scope == ScopePrototype {
		if stack.contains(name) {
			return nil, errors.Wrapf(ErrCurrentlyInCreation, "prototype bean '%s' requested again by chain %s", name, stack.push(name))
		}
		obj, err := t.createBean(name, merged, explicitArgs, stack.push(name))
		if err != nil {
			return nil, beanCreationError(merged, name, err)
		}
		return t.finishBean(name, obj, requiredType, factoryDeref, stack)
	}

	t.mu.Lock()
	for {
		entry, ok := t.singletons[name]
		if !ok {
			// mark in creation
			t.singletons[name] = &singletonEntry{state: stateInCreation}
			break
		}
		if entry.state == stateComplete {
			obj := entry.obj
			t.mu.Unlock()
			return t.finishBean(name, obj, requiredType, factoryDeref, stack)
		}
		if stack.contains(name) {
			t.mu.Unlock()
			return nil, errors.Wrapf(ErrCurrentlyInCreation, "bean '%s' requested again by chain %s", name, stack.push(name))
		}
		t.cond.Wait()
	}
	t.mu.Unlock()

	obj, err := t.createBean(name, merged, explicitArgs, stack.push(name))

	t.mu.Lock()
	if err != nil {
		// roll back the in-creation marker entirely
		delete(t.singletons, name)
		t.cond.Broadcast()
		t.mu.Unlock()
		return nil, beanCreationError(merged, name, err)
	}
	entry := t.singletons[name]
	entry.state = stateComplete
	entry.obj = obj
	t.cond.Broadcast()
	t.mu.Unlock()

	t.registerDisposableIfNecessary(name, obj, merged)

	return t.finishBean(name, obj, requiredType, factoryDeref, stack)
}

/**
Dereferences factory beans and verifies the required type before handing the
instance to the caller.
*/
func (t *beanFactory) finishBean(name string, obj interface{}, requiredType reflect.Type, factoryDeref bool, stack creationStack) (interface{}, error) {
	if factoryBean, ok := obj.(FactoryBean); ok && !factoryDeref {
		product, err := t.factoryBeanProduct(name, factoryBean)
		if err != nil {
			return nil, err
		}
		obj = product
	}
	return t.checkRequiredType(name, obj, requiredType)
}

func (t *beanFactory) checkRequiredType(name string, obj interface{}, requiredType reflect.Type) (interface{}, error) {
	if requiredType != nil && !reflect.TypeOf(obj).AssignableTo(requiredType) {
		return nil, errors.Wrapf(ErrNotOfRequiredType, "bean '%s' of type '%v' where '%v' is required", name, reflect.TypeOf(obj), requiredType)
	}
	return obj, nil
}

func (t *beanFactory) factoryBeanProduct(name string, factoryBean FactoryBean) (interface{}, error) {
	if factoryBean.Singleton() {
		t.mu.Lock()
		if product, ok := t.factoryProducts[name]; ok {
			t.mu.Unlock()
			return product, nil
		}
		t.mu.Unlock()
	}
	product, err := factoryBean.Object()
	if err != nil {
		return nil, errors.Errorf("factory bean '%s' failed to create object of type '%v', %v", name, factoryBean.ObjectType(), err)
	}
	if product == nil {
		return nil, errors.Errorf("factory bean '%s' produced nil object", name)
	}
	if factoryBean.Singleton() {
		t.mu.Lock()
		t.factoryProducts[name] = product
		t.mu.Unlock()
	}
	return product, nil
}

/**
Eagerly caches the raw instance of a singleton currently in creation so that
circular dependents resolve to this same instance.
*/
func (t *beanFactory) cacheRawSingleton(name string, raw interface{}) {
	t.mu.Lock()
	if entry, ok := t.singletons[name]; ok && entry.state == stateInCreation {
		entry.obj = raw
	}
	t.mu.Unlock()
}

func (t *beanFactory) ContainsBean(name string) bool {
	name = t.registry.canonicalName(strings.TrimPrefix(name, FactoryDereferencePrefix))
	t.mu.Lock()
	_, cached := t.singletons[name]
	t.mu.Unlock()
	if cached || t.registry.contains(name) {
		return true
	}
	if t.parent != nil {
		return t.parent.ContainsBean(name)
	}
	return false
}

func (t *beanFactory) IsSingleton(name string) (bool, error) {
	name = t.registry.canonicalName(strings.TrimPrefix(name, FactoryDereferencePrefix))
	t.mu.Lock()
	entry, cached := t.singletons[name]
	t.mu.Unlock()
	if cached && entry.state == stateComplete {
		if factoryBean, ok := entry.obj.(FactoryBean); ok {
			return factoryBean.Singleton(), nil
		}
		return true, nil
	}
	if t.registry.contains(name) {
		merged, err := t.MergedDefinition(name)
		if err != nil {
			return false, err
		}
		return merged.Scope == ScopeSingleton, nil
	}
	if t.parent != nil {
		return t.parent.IsSingleton(name)
	}
	return false, errors.Wrapf(ErrNoSuchDefinition, "bean '%s'", name)
}

func (t *beanFactory) GetType(name string) (reflect.Type, error) {
	factoryDeref := strings.HasPrefix(name, FactoryDereferencePrefix)
	name = t.registry.canonicalName(strings.TrimPrefix(name, FactoryDereferencePrefix))
	t.mu.Lock()
	entry, cached := t.singletons[name]
	t.mu.Unlock()
	if cached && entry.state == stateComplete {
		if factoryBean, ok := entry.obj.(FactoryBean); ok && !factoryDeref {
			return factoryBean.ObjectType(), nil
		}
		return reflect.TypeOf(entry.obj), nil
	}
	if t.registry.contains(name) {
		merged, err := t.MergedDefinition(name)
		if err != nil {
			return nil, err
		}
		return t.beanTypeOf(merged, factoryDeref), nil
	}
	if t.parent != nil {
		return t.parent.GetType(name)
	}
	return nil, errors.Wrapf(ErrNoSuchDefinition, "bean '%s'", name)
}

/**
Best-effort type of the object the definition would produce.
Factory bean products and instance factory methods stay unknown until created.
*/
func (t *beanFactory) beanTypeOf(definition *BeanDefinition, factoryDeref bool) reflect.Type {
	if len(definition.FactoryMethods) > 0 {
		fn := reflect.TypeOf(definition.FactoryMethods[0])
		if fn != nil && fn.Kind() == reflect.Func && fn.NumOut() > 0 {
			return fn.Out(0)
		}
		return nil
	}
	if definition.FactoryBeanName != "" {
		return nil
	}
	if len(definition.Constructors) > 0 {
		fn := reflect.TypeOf(definition.Constructors[0])
		if fn != nil && fn.Kind() == reflect.Func && fn.NumOut() > 0 {
			return fn.Out(0)
		}
		return nil
	}
	typ := definition.Type
	if typ == nil && definition.TypeName != "" {
		typ, _ = t.types.Lookup(definition.TypeName)
	}
	if typ != nil && typ.Implements(FactoryBeanClass) && !factoryDeref {
		return nil
	}
	return typ
}

func (t *beanFactory) MergedDefinition(name string) (*BeanDefinition, error) {
	name = t.registry.canonicalName(name)
	t.mergedMu.Lock()
	if merged, ok := t.merged[name]; ok {
		t.mergedMu.Unlock()
		return merged, nil
	}
	t.mergedMu.Unlock()

	merged, err := t.mergeDefinition(name, nil)
	if err != nil {
		return nil, err
	}
	if merged.Type == nil && merged.TypeName != "" {
		typ, ok := t.types.Lookup(merged.TypeName)
		if !ok {
			return nil, errors.Errorf("unknown type name '%s' of bean '%s'", merged.TypeName, name)
		}
		// keep symbolic definitions resolvable per factory
		merged = merged.copy()
		merged.Type = typ
	}

	t.mergedMu.Lock()
	t.merged[name] = merged
	t.mergedMu.Unlock()
	return merged, nil
}

/**
Resolves the parent definition chain recursively. A definition whose parent name
equals its own name is looked up in the parent factory to avoid self-reference.
*/
func (t *beanFactory) mergeDefinition(name string, visited []string) (*BeanDefinition, error) {
	definition, ok := t.registry.find(name)
	if !ok {
		if t.parent != nil {
			return t.parent.mergeDefinition(name, nil)
		}
		return nil, errors.Wrapf(ErrNoSuchDefinition, "bean '%s'", name)
	}
	if definition.Parent == "" {
		return definition, nil
	}
	for _, v := range visited {
		if v == name {
			return nil, errors.Errorf("invalid definition '%s', cyclic parent chain %v", name, append(visited, name))
		}
	}
	var parentDef *BeanDefinition
	var err error
	if definition.Parent == name {
		if t.parent == nil {
			return nil, errors.Errorf("invalid definition '%s', parent name equals bean name and no parent factory exist", name)
		}
		parentDef, err = t.parent.mergeDefinition(definition.Parent, nil)
	} else {
		parentDef, err = t.mergeDefinition(definition.Parent, append(visited, name))
	}
	if err != nil {
		return nil, err
	}
	return mergeDefinitions(parentDef, definition), nil
}

func (t *beanFactory) PreInstantiateSingletons() error {
	for _, name := range t.registry.names() {
		merged, err := t.MergedDefinition(name)
		if err != nil {
			return err
		}
		if merged.Abstract || merged.Lazy || merged.Scope != ScopeSingleton {
			continue
		}
		if _, err := t.GetBean(name); err != nil {
			return err
		}
	}
	return nil
}

func (t *beanFactory) BeansOfType(typ reflect.Type) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	for _, name := range t.candidateNamesForType(typ) {
		obj, err := t.GetBean(name)
		if err != nil {
			return nil, err
		}
		out[name] = obj
	}
	return out, nil
}

/**
Names of local definitions and manual singletons whose bean type is assignable
to the required type. Used by autowiring, zero or many matches are meaningful.
*/
func (t *beanFactory) candidateNamesForType(typ reflect.Type) []string {
	var names []string
	seen := make(map[string]bool)
	for _, name := range t.registry.names() {
		merged, err := t.MergedDefinition(name)
		if err != nil || merged.Abstract {
			continue
		}
		beanType := t.beanTypeOf(merged, false)
		if beanType != nil && beanType.AssignableTo(typ) {
			names = append(names, name)
			seen[name] = true
		}
	}
	t.mu.Lock()
	for name, entry := range t.singletons {
		if seen[name] || entry.state != stateComplete {
			continue
		}
		if reflect.TypeOf(entry.obj).AssignableTo(typ) {
			names = append(names, name)
		}
	}
	t.mu.Unlock()
	return names
}

/**
Records that the dependent bean must be destroyed before the dependency.
*/
func (t *beanFactory) registerDependent(dependency, dependent string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.dependents[dependency] {
		if existing == dependent {
			return
		}
	}
	t.dependents[dependency] = append(t.dependents[dependency], dependent)
}

func (t *beanFactory) registerDisposableIfNecessary(name string, obj interface{}, definition *BeanDefinition) {
	_, isDisposable := obj.(DisposableBean)
	if !isDisposable && definition.DestroyMethodName == "" && len(t.destructionProcessors()) == 0 {
		return
	}
	t.registerDisposable(name, obj, definition)
}

func (t *beanFactory) registerDisposable(name string, obj interface{}, definition *BeanDefinition) {
	processors := t.destructionProcessors()
	t.mu.Lock()
	defer t.mu.Unlock()
	key := name
	for counter := 2; ; counter++ {
		if _, ok := t.disposables[key]; !ok {
			break
		}
		key = fmt.Sprintf("%s#%d", name, counter)
	}
	t.disposables[key] = &disposable{
		name:       name,
		obj:        obj,
		definition: definition,
		processors: processors,
	}
	t.disposableOrder = append(t.disposableOrder, key)
}

/**
Destroys all cached singletons, dependents first. Errors are logged and
swallowed, shutdown always completes. Idempotent.
*/
func (t *beanFactory) DestroySingletons() error {

	t.mu.Lock()
	// no new lookups succeed once the cache is cleared
	t.singletons = make(map[string]*singletonEntry)
	t.factoryProducts = make(map[string]interface{})
	disposables := t.disposables
	order := t.disposableOrder
	dependents := t.dependents
	t.disposables = make(map[string]*disposable)
	t.disposableOrder = nil
	t.dependents = make(map[string][]string)
	t.cond.Broadcast()
	t.mu.Unlock()

	for i := len(order) - 1; i >= 0; i-- {
		t.destroyDisposable(order[i], disposables, dependents)
	}
	return nil
}

func (t *beanFactory) destroyDisposable(key string, disposables map[string]*disposable, dependents map[string][]string) {
	d, ok := disposables[key]
	if !ok {
		return
	}
	delete(disposables, key)

	// dependents go first
	for _, dependent := range dependents[d.name] {
		t.destroyDisposable(dependent, disposables, dependents)
	}

	t.destroyBean(d)
}

func indent(n int) string {
	if n == 0 {
		return ""
	}
	var out []byte
	for i := 0; i < n; i++ {
		out = append(out, ' ', ' ')
	}
	return string(out)
}

func (t *beanFactory) String() string {
	definitions := len(t.registry.names())
	t.mu.Lock()
	defer t.mu.Unlock()
	return fmt.Sprintf("Factory [hasParent=%v, definitions=%d, singletons=%d, destructors=%d]",
		t.parent != nil, definitions, len(t.singletons), len(t.disposables))
}
