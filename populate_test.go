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

var MetricsSinkClass = reflect.TypeOf((*metricsSink)(nil)) // *metricsSink
type metricsSink struct {
}

var ReportJobClass = reflect.TypeOf((*reportJob)(nil)) // *reportJob
type reportJob struct {
	Sink    *metricsSink
	Names   []string
	Limit   int
	Labels  map[string]string
	Skipped *metricsSink `wire:"-"`
}

var PushNotifierClass = reflect.TypeOf((*pushNotifier)(nil)) // *pushNotifier
type pushNotifier struct {
}

var AlertDispatcherClass = reflect.TypeOf((*alertDispatcher)(nil)) // *alertDispatcher
type alertDispatcher struct {
	PushNotifier *pushNotifier
}

var QueryCacheClass = reflect.TypeOf((*queryCache)(nil)) // *queryCache
type queryCache struct {
}

var SearchServiceClass = reflect.TypeOf((*searchService)(nil)) // *searchService
type searchService struct {
	Cache *queryCache
}

var CheckedMailerClass = reflect.TypeOf((*checkedMailer)(nil)) // *checkedMailer
type checkedMailer struct {
	Sink    *metricsSink
	Retries int
}

func TestPropertyPopulation(t *testing.T) {

	factory := wiring.New()
	require.NoError(t, factory.RegisterDefinition("metricsSink", wiring.NewDefinition(MetricsSinkClass)))

	definition := wiring.NewDefinition(ReportJobClass).
		SetProperty("Sink", wiring.Ref("metricsSink")).
		SetProperty("Names", wiring.List("daily", "weekly")).
		SetProperty("Limit", "25").
		SetProperty("Labels", wiring.ManagedMap{"env": "dev"})
	require.NoError(t, factory.RegisterDefinition("reportJob", definition))

	obj, err := factory.GetBean("reportJob")
	require.NoError(t, err)
	job := obj.(*reportJob)

	sink, err := factory.GetBean("metricsSink")
	require.NoError(t, err)
	require.True(t, job.Sink == sink)
	require.Equal(t, []string{"daily", "weekly"}, job.Names)
	require.Equal(t, 25, job.Limit)
	require.Equal(t, map[string]string{"env": "dev"}, job.Labels)
	require.Nil(t, job.Skipped)
}

func TestInnerBeanProperty(t *testing.T) {

	factory := wiring.New()
	definition := wiring.NewDefinition(ReportJobClass).
		SetProperty("Sink", wiring.NewDefinition(MetricsSinkClass))
	require.NoError(t, factory.RegisterDefinition("reportJob", definition))

	obj, err := factory.GetBean("reportJob")
	require.NoError(t, err)
	require.NotNil(t, obj.(*reportJob).Sink)

	// the inner bean is not addressable by name
	require.Equal(t, []string{"reportJob"}, factory.DefinitionNames())
}

func TestUnknownProperty(t *testing.T) {

	factory := wiring.New()
	definition := wiring.NewDefinition(MetricsSinkClass).SetProperty("Missing", "value")
	require.NoError(t, factory.RegisterDefinition("metricsSink", definition))

	obj, err := factory.GetBean("metricsSink")
	require.Error(t, err)
	require.Nil(t, obj)
	require.True(t, strings.Contains(err.Error(), "no writable property 'Missing'"))
}

func TestAutowireByName(t *testing.T) {

	factory := wiring.New()
	require.NoError(t, factory.RegisterDefinition("pushNotifier", wiring.NewDefinition(PushNotifierClass)))
	require.NoError(t, factory.RegisterDefinition("alertDispatcher",
		wiring.NewDefinition(AlertDispatcherClass).WithAutowire(wiring.AutowireByName)))

	obj, err := factory.GetBean("alertDispatcher")
	require.NoError(t, err)
	notifier, err := factory.GetBean("pushNotifier")
	require.NoError(t, err)
	require.True(t, obj.(*alertDispatcher).PushNotifier == notifier)
}

func TestAutowireByNameNoMatch(t *testing.T) {

	factory := wiring.New()
	require.NoError(t, factory.RegisterDefinition("alertDispatcher",
		wiring.NewDefinition(AlertDispatcherClass).WithAutowire(wiring.AutowireByName)))

	obj, err := factory.GetBean("alertDispatcher")
	require.NoError(t, err)
	require.Nil(t, obj.(*alertDispatcher).PushNotifier)
}

func TestAutowireByType(t *testing.T) {

	factory := wiring.New()
	require.NoError(t, factory.RegisterDefinition("primaryCache", wiring.NewDefinition(QueryCacheClass)))
	require.NoError(t, factory.RegisterDefinition("searchService",
		wiring.NewDefinition(SearchServiceClass).WithAutowire(wiring.AutowireByType)))

	obj, err := factory.GetBean("searchService")
	require.NoError(t, err)
	cache, err := factory.GetBean("primaryCache")
	require.NoError(t, err)
	require.True(t, obj.(*searchService).Cache == cache)
}

func TestAutowireByTypeAmbiguous(t *testing.T) {

	factory := wiring.New()
	require.NoError(t, factory.RegisterDefinition("primaryCache", wiring.NewDefinition(QueryCacheClass)))
	require.NoError(t, factory.RegisterDefinition("secondaryCache", wiring.NewDefinition(QueryCacheClass)))
	require.NoError(t, factory.RegisterDefinition("searchService",
		wiring.NewDefinition(SearchServiceClass).WithAutowire(wiring.AutowireByType)))

	obj, err := factory.GetBean("searchService")
	require.Error(t, err)
	require.Nil(t, obj)
	require.True(t, strings.Contains(err.Error(), "ambiguous autowire by type"))

	var unsatisfied *wiring.UnsatisfiedDependencyError
	require.True(t, errors.As(err, &unsatisfied))
	require.Equal(t, "Cache", unsatisfied.Property)
}

func TestExplicitPropertyBeatsAutowiring(t *testing.T) {

	factory := wiring.New()
	require.NoError(t, factory.RegisterDefinition("primaryCache", wiring.NewDefinition(QueryCacheClass)))
	require.NoError(t, factory.RegisterDefinition("secondaryCache", wiring.NewDefinition(QueryCacheClass)))
	require.NoError(t, factory.RegisterDefinition("searchService",
		wiring.NewDefinition(SearchServiceClass).
			WithAutowire(wiring.AutowireByType).
			SetProperty("Cache", wiring.Ref("secondaryCache"))))

	obj, err := factory.GetBean("searchService")
	require.NoError(t, err)
	secondary, err := factory.GetBean("secondaryCache")
	require.NoError(t, err)
	require.True(t, obj.(*searchService).Cache == secondary)
}

func TestDependencyCheckObjects(t *testing.T) {

	factory := wiring.New()
	require.NoError(t, factory.RegisterDefinition("checkedMailer",
		wiring.NewDefinition(CheckedMailerClass).WithDependencyCheck(wiring.DependencyCheckObjects)))

	obj, err := factory.GetBean("checkedMailer")
	require.Error(t, err)
	require.Nil(t, obj)
	require.True(t, strings.Contains(err.Error(), "dependency check"))

	var unsatisfied *wiring.UnsatisfiedDependencyError
	require.True(t, errors.As(err, &unsatisfied))
	require.Equal(t, "Sink", unsatisfied.Property)
}

func TestDependencyCheckObjectsSatisfied(t *testing.T) {

	factory := wiring.New()
	require.NoError(t, factory.RegisterDefinition("metricsSink", wiring.NewDefinition(MetricsSinkClass)))
	require.NoError(t, factory.RegisterDefinition("checkedMailer",
		wiring.NewDefinition(CheckedMailerClass).
			WithDependencyCheck(wiring.DependencyCheckObjects).
			SetProperty("Sink", wiring.Ref("metricsSink"))))

	// the simple Retries property stays unset, objects mode does not demand it
	obj, err := factory.GetBean("checkedMailer")
	require.NoError(t, err)
	require.NotNil(t, obj.(*checkedMailer).Sink)
}

func TestDependencyCheckSimple(t *testing.T) {

	factory := wiring.New()
	require.NoError(t, factory.RegisterDefinition("metricsSink", wiring.NewDefinition(MetricsSinkClass)))
	require.NoError(t, factory.RegisterDefinition("checkedMailer",
		wiring.NewDefinition(CheckedMailerClass).
			WithDependencyCheck(wiring.DependencyCheckSimple).
			SetProperty("Sink", wiring.Ref("metricsSink"))))

	obj, err := factory.GetBean("checkedMailer")
	require.Error(t, err)
	require.Nil(t, obj)

	var unsatisfied *wiring.UnsatisfiedDependencyError
	require.True(t, errors.As(err, &unsatisfied))
	require.Equal(t, "Retries", unsatisfied.Property)
}

func TestDependencyCheckAll(t *testing.T) {

	factory := wiring.New()
	require.NoError(t, factory.RegisterDefinition("metricsSink", wiring.NewDefinition(MetricsSinkClass)))
	require.NoError(t, factory.RegisterDefinition("checkedMailer",
		wiring.NewDefinition(CheckedMailerClass).
			WithDependencyCheck(wiring.DependencyCheckAll).
			SetProperty("Sink", wiring.Ref("metricsSink")).
			SetProperty("Retries", 3)))

	obj, err := factory.GetBean("checkedMailer")
	require.NoError(t, err)
	mailer := obj.(*checkedMailer)
	require.NotNil(t, mailer.Sink)
	require.Equal(t, 3, mailer.Retries)
}

func TestDependencyCheckIgnoresExcludedFields(t *testing.T) {

	factory := wiring.New()
	require.NoError(t, factory.RegisterDefinition("metricsSink", wiring.NewDefinition(MetricsSinkClass)))
	require.NoError(t, factory.RegisterDefinition("reportJob",
		wiring.NewDefinition(ReportJobClass).
			WithDependencyCheck(wiring.DependencyCheckAll).
			SetProperty("Sink", wiring.Ref("metricsSink")).
			SetProperty("Names", wiring.List("daily")).
			SetProperty("Limit", 5).
			SetProperty("Labels", wiring.ManagedMap{"env": "dev"})))

	// Skipped is excluded by tag and never demanded
	obj, err := factory.GetBean("reportJob")
	require.NoError(t, err)
	require.Nil(t, obj.(*reportJob).Skipped)
}
