/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package wiring_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/codeallergy/wiring"
	"github.com/stretchr/testify/require"
)

var UserRepositoryClass = reflect.TypeOf((*userRepository)(nil)) // *userRepository
type userRepository struct {
}

var AuditServiceClass = reflect.TypeOf((*auditService)(nil)) // *auditService
type auditService struct {
}

func (t *auditService) Audit() {
}

var AuditSinkClass = reflect.TypeOf((*AuditSink)(nil)).Elem()

type AuditSink interface {
	Audit()
}

func TestSingletonIdentity(t *testing.T) {

	factory := wiring.New()
	require.NoError(t, factory.RegisterDefinition("userRepository", wiring.NewDefinition(UserRepositoryClass)))

	first, err := factory.GetBean("userRepository")
	require.NoError(t, err)
	require.IsType(t, &userRepository{}, first)

	second, err := factory.GetBean("userRepository")
	require.NoError(t, err)
	require.True(t, first == second)

	shared, err := factory.IsSingleton("userRepository")
	require.NoError(t, err)
	require.True(t, shared)

	require.True(t, factory.ContainsBean("userRepository"))
	require.True(t, factory.ContainsDefinition("userRepository"))
}

func TestPrototypeBeans(t *testing.T) {

	factory := wiring.New()
	definition := wiring.NewDefinition(UserRepositoryClass).WithScope(wiring.ScopePrototype)
	require.NoError(t, factory.RegisterDefinition("userRepository", definition))

	first, err := factory.GetBean("userRepository")
	require.NoError(t, err)
	second, err := factory.GetBean("userRepository")
	require.NoError(t, err)
	require.False(t, first == second)

	shared, err := factory.IsSingleton("userRepository")
	require.NoError(t, err)
	require.False(t, shared)
}

func TestNoSuchDefinition(t *testing.T) {

	factory := wiring.New()

	obj, err := factory.GetBean("unknown")
	require.Error(t, err)
	require.Nil(t, obj)
	require.True(t, errors.Is(err, wiring.ErrNoSuchDefinition))
	require.False(t, factory.ContainsBean("unknown"))
}

func TestDuplicateDefinition(t *testing.T) {

	factory := wiring.New()
	require.NoError(t, factory.RegisterDefinition("userRepository", wiring.NewDefinition(UserRepositoryClass)))

	err := factory.RegisterDefinition("userRepository", wiring.NewDefinition(UserRepositoryClass))
	require.Error(t, err)
	require.True(t, errors.Is(err, wiring.ErrDefinitionExists))
}

func TestRegisterSingleton(t *testing.T) {

	factory := wiring.New()
	instance := &userRepository{}
	factory.RegisterSingleton("userRepository", instance)

	obj, err := factory.GetBean("userRepository")
	require.NoError(t, err)
	require.True(t, instance == obj)

	shared, err := factory.IsSingleton("userRepository")
	require.NoError(t, err)
	require.True(t, shared)
}

func TestAliases(t *testing.T) {

	factory := wiring.New()
	require.NoError(t, factory.RegisterDefinition("userRepository", wiring.NewDefinition(UserRepositoryClass)))
	require.NoError(t, factory.RegisterAlias("userRepository", "users"))
	require.NoError(t, factory.RegisterAlias("users", "accounts"))

	canonical, err := factory.GetBean("userRepository")
	require.NoError(t, err)
	byAlias, err := factory.GetBean("users")
	require.NoError(t, err)
	byChainedAlias, err := factory.GetBean("accounts")
	require.NoError(t, err)
	require.True(t, canonical == byAlias)
	require.True(t, canonical == byChainedAlias)

	aliases := factory.Aliases("userRepository")
	require.Contains(t, aliases, "users")
	require.Contains(t, aliases, "accounts")

	err = factory.RegisterAlias("somethingElse", "users")
	require.Error(t, err)
	require.True(t, errors.Is(err, wiring.ErrAliasExists))

	err = factory.RegisterAlias("users", "userRepository")
	require.Error(t, err)
	require.True(t, errors.Is(err, wiring.ErrAliasExists))
}

func TestGetBeanWithType(t *testing.T) {

	factory := wiring.New()
	require.NoError(t, factory.RegisterDefinition("auditService", wiring.NewDefinition(AuditServiceClass)))
	require.NoError(t, factory.RegisterDefinition("userRepository", wiring.NewDefinition(UserRepositoryClass)))

	obj, err := factory.GetBeanWithType("auditService", AuditSinkClass)
	require.NoError(t, err)
	_, ok := obj.(AuditSink)
	require.True(t, ok)

	obj, err = factory.GetBeanWithType("userRepository", AuditSinkClass)
	require.Error(t, err)
	require.Nil(t, obj)
	require.True(t, errors.Is(err, wiring.ErrNotOfRequiredType))
}

func TestGetType(t *testing.T) {

	factory := wiring.New()
	require.NoError(t, factory.RegisterDefinition("userRepository", wiring.NewDefinition(UserRepositoryClass)))

	typ, err := factory.GetType("userRepository")
	require.NoError(t, err)
	require.Equal(t, UserRepositoryClass, typ)

	typ, err = factory.GetType("unknown")
	require.Error(t, err)
	require.Nil(t, typ)
	require.True(t, errors.Is(err, wiring.ErrNoSuchDefinition))
}

func TestBeansOfType(t *testing.T) {

	factory := wiring.New()
	require.NoError(t, factory.RegisterDefinition("userRepository", wiring.NewDefinition(UserRepositoryClass)))
	require.NoError(t, factory.RegisterDefinition("auditService", wiring.NewDefinition(AuditServiceClass)))
	factory.RegisterSingleton("backupRepository", &userRepository{})

	beans, err := factory.BeansOfType(UserRepositoryClass)
	require.NoError(t, err)
	require.Equal(t, 2, len(beans))
	require.Contains(t, beans, "userRepository")
	require.Contains(t, beans, "backupRepository")

	sinks, err := factory.BeansOfType(AuditSinkClass)
	require.NoError(t, err)
	require.Equal(t, 1, len(sinks))
	require.Contains(t, sinks, "auditService")
}

func TestPreInstantiateSingletons(t *testing.T) {

	factory := wiring.New()

	var eagerCount, lazyCount int
	eager := wiring.NewDefinition(AuditServiceClass).WithConstructors(func() *auditService {
		eagerCount++
		return &auditService{}
	})
	lazy := wiring.NewDefinition(UserRepositoryClass).WithLazy().WithConstructors(func() *userRepository {
		lazyCount++
		return &userRepository{}
	})
	require.NoError(t, factory.RegisterDefinition("auditService", eager))
	require.NoError(t, factory.RegisterDefinition("userRepository", lazy))

	require.NoError(t, factory.PreInstantiateSingletons())
	require.Equal(t, 1, eagerCount)
	require.Equal(t, 0, lazyCount)

	_, err := factory.GetBean("auditService")
	require.NoError(t, err)
	require.Equal(t, 1, eagerCount)

	_, err = factory.GetBean("userRepository")
	require.NoError(t, err)
	require.Equal(t, 1, lazyCount)
}

func TestExplicitArgsOnSingleton(t *testing.T) {

	factory := wiring.New()
	require.NoError(t, factory.RegisterDefinition("userRepository", wiring.NewDefinition(UserRepositoryClass)))

	obj, err := factory.GetBeanWithArgs("userRepository", "arg")
	require.Error(t, err)
	require.Nil(t, obj)
	require.True(t, strings.Contains(err.Error(), "only allowed on prototype factory method definitions"))
}
