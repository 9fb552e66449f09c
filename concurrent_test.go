/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package wiring_test

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/codeallergy/wiring"
	"github.com/stretchr/testify/require"
)

var SlowStarterClass = reflect.TypeOf((*slowStarter)(nil)) // *slowStarter
type slowStarter struct {
}

var errFirstAttempt = errors.New("first attempt failed")

/**
Concurrent lookups of the same singleton block on the first creation and all
observe the single completed instance.
*/
func TestConcurrentSingletonCreation(t *testing.T) {

	factory := wiring.New()

	var built int32
	definition := wiring.NewDefinition(SlowStarterClass).WithConstructors(func() *slowStarter {
		atomic.AddInt32(&built, 1)
		time.Sleep(50 * time.Millisecond)
		return &slowStarter{}
	})
	require.NoError(t, factory.RegisterDefinition("slowStarter", definition))

	const lookups = 8
	results := make([]interface{}, lookups)
	errs := make([]error, lookups)

	var wg sync.WaitGroup
	for i := 0; i < lookups; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = factory.GetBean("slowStarter")
		}(i)
	}
	wg.Wait()

	for i := 0; i < lookups; i++ {
		require.NoError(t, errs[i])
		require.True(t, results[0] == results[i])
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&built))
}

/**
A failed creation wakes up the waiters, the next one retries instead of
hanging on the rolled back marker.
*/
func TestConcurrentCreationFailureWakesWaiters(t *testing.T) {

	factory := wiring.New()

	var attempts int32
	definition := wiring.NewDefinition(SlowStarterClass).WithConstructors(func() (*slowStarter, error) {
		n := atomic.AddInt32(&attempts, 1)
		time.Sleep(20 * time.Millisecond)
		if n == 1 {
			return nil, errFirstAttempt
		}
		return &slowStarter{}, nil
	})
	require.NoError(t, factory.RegisterDefinition("slowStarter", definition))

	const lookups = 4
	results := make([]interface{}, lookups)
	errs := make([]error, lookups)

	var wg sync.WaitGroup
	for i := 0; i < lookups; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = factory.GetBean("slowStarter")
		}(i)
	}
	wg.Wait()

	var succeeded int
	for i := 0; i < lookups; i++ {
		if errs[i] == nil {
			require.NotNil(t, results[i])
			succeeded++
		}
	}
	require.True(t, succeeded >= 1)
	require.True(t, atomic.LoadInt32(&attempts) >= 2)
}
