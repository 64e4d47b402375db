package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryTimeoutDefaults(t *testing.T) {
	element, navigation := ChromeFactory{}.timeouts()
	assert.Equal(t, DefaultElementTimeout, element)
	assert.Equal(t, DefaultNavigationTimeout, navigation)

	element, navigation = ChromeFactory{
		ElementTimeout:    2 * time.Second,
		NavigationTimeout: 5 * time.Second,
	}.timeouts()
	assert.Equal(t, 2*time.Second, element)
	assert.Equal(t, 5*time.Second, navigation)

	element, navigation = ChromeFactory{
		ElementTimeout:    -1,
		NavigationTimeout: -1,
	}.timeouts()
	assert.Equal(t, DefaultElementTimeout, element)
	assert.Equal(t, DefaultNavigationTimeout, navigation)
}

func TestMergeContextCallerCancel(t *testing.T) {
	browserCtx := context.Background()
	callerCtx, callerCancel := context.WithCancel(context.Background())

	merged, cancel := mergeContext(browserCtx, callerCtx)
	defer cancel()

	require.NoError(t, merged.Err())
	callerCancel()

	select {
	case <-merged.Done():
	case <-time.After(time.Second):
		t.Fatal("merged context not cancelled with caller")
	}
}

func TestMergeContextBrowserCancel(t *testing.T) {
	browserCtx, browserCancel := context.WithCancel(context.Background())
	defer browserCancel()

	merged, cancel := mergeContext(browserCtx, context.Background())
	defer cancel()

	browserCancel()

	select {
	case <-merged.Done():
	case <-time.After(time.Second):
		t.Fatal("merged context not cancelled with browser")
	}
}
