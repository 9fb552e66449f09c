/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package wiring

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

/**
Holds registered bean definitions and aliases of one factory.
*/

type definitionRegistry struct {
	sync.RWMutex
	definitions map[string]*BeanDefinition

	/**
	Alias to canonical name, chains allowed.
	*/
	aliases map[string]string
}

func newDefinitionRegistry() *definitionRegistry {
	return &definitionRegistry{
		definitions: make(map[string]*BeanDefinition),
		aliases:     make(map[string]string),
	}
}

func (t *definitionRegistry) register(name string, definition *BeanDefinition) error {
	if err := validateDefinition(name, definition); err != nil {
		return err
	}
	t.Lock()
	defer t.Unlock()
	if _, ok := t.definitions[name]; ok {
		return errors.Wrapf(ErrDefinitionExists, "bean '%s'", name)
	}
	t.definitions[name] = definition
	return nil
}

func (t *definitionRegistry) find(name string) (*BeanDefinition, bool) {
	t.RLock()
	defer t.RUnlock()
	definition, ok := t.definitions[name]
	return definition, ok
}

func (t *definitionRegistry) contains(name string) bool {
	t.RLock()
	defer t.RUnlock()
	_, ok := t.definitions[name]
	return ok
}

func (t *definitionRegistry) names() []string {
	t.RLock()
	defer t.RUnlock()
	var list []string
	for name := range t.definitions {
		list = append(list, name)
	}
	return list
}

func (t *definitionRegistry) registerAlias(name, alias string) error {
	t.Lock()
	defer t.Unlock()
	if existing, ok := t.aliases[alias]; ok && existing != name {
		return errors.Wrapf(ErrAliasExists, "alias '%s' already points to bean '%s'", alias, existing)
	}
	if _, ok := t.definitions[alias]; ok {
		return errors.Wrapf(ErrAliasExists, "alias '%s' conflicts with a bean definition", alias)
	}
	t.aliases[alias] = name
	return nil
}

/**
Resolves alias chain to the canonical bean name.
*/
func (t *definitionRegistry) canonicalName(name string) string {
	t.RLock()
	defer t.RUnlock()
	return t.canonical(name)
}

func (t *definitionRegistry) canonical(name string) string {
	visited := make(map[string]bool)
	for {
		next, ok := t.aliases[name]
		if !ok || visited[name] {
			return name
		}
		visited[name] = true
		name = next
	}
}

/**
All aliases resolving to the canonical name, chained ones included.
*/
func (t *definitionRegistry) aliasesOf(name string) []string {
	t.RLock()
	defer t.RUnlock()
	var list []string
	for alias := range t.aliases {
		if t.canonical(alias) == name {
			list = append(list, alias)
		}
	}
	return list
}

/**
Maps symbolic type names to go types for definition readers.
Child registries fall through to the parent on lookup.
*/

type TypeRegistry struct {
	sync.RWMutex
	parent *TypeRegistry
	types  map[string]reflect.Type
}

func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]reflect.Type)}
}

func (t *TypeRegistry) extend() *TypeRegistry {
	return &TypeRegistry{parent: t, types: make(map[string]reflect.Type)}
}

/**
Registers the type under the symbolic name, pointer to struct expected.
*/
func (t *TypeRegistry) Register(name string, typ reflect.Type) {
	t.Lock()
	defer t.Unlock()
	t.types[name] = typ
}

func (t *TypeRegistry) Lookup(name string) (reflect.Type, bool) {
	t.RLock()
	typ, ok := t.types[name]
	t.RUnlock()
	if !ok && t.parent != nil {
		return t.parent.Lookup(name)
	}
	return typ, ok
}
