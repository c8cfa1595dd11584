package operations_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churnlab/internal/operations"
	"churnlab/internal/operations/testutil"
)

func TestRegistry(t *testing.T) {
	registry := operations.NewRegistry()

	assert.Equal(t, 0, registry.Count())
	steps := registry.List()
	assert.NotNil(t, steps, "List() should return empty slice, not nil")
	assert.Empty(t, steps)
}

func TestRegistryRegister(t *testing.T) {
	registry := operations.NewRegistry()

	step1 := testutil.SucceedingStep("load")
	step2 := testutil.SucceedingStep("features")
	step3 := testutil.SucceedingStep("train")

	require.NoError(t, registry.Register(step1))
	require.NoError(t, registry.Register(step2))
	require.NoError(t, registry.Register(step3))

	assert.Equal(t, 3, registry.Count())
	assert.True(t, registry.Has("features"))
	assert.False(t, registry.Has("evaluate"))

	got, err := registry.Get("load")
	require.NoError(t, err)
	assert.Same(t, step1, got)

	assert.Equal(t, []string{"load", "features", "train"}, registry.ListIDs())
	list := registry.List()
	require.Len(t, list, 3)
	assert.Equal(t, "train", list[2].ID())
}

func TestRegistryRegisterErrors(t *testing.T) {
	registry := operations.NewRegistry()

	err := registry.Register(nil)
	assert.ErrorContains(t, err, "nil step")

	err = registry.Register(&testutil.MockStep{NameValue: "Empty ID Step"})
	assert.ErrorContains(t, err, "ID cannot be empty")

	step := testutil.SucceedingStep("dup")
	require.NoError(t, registry.Register(step))
	err = registry.Register(step)
	assert.ErrorContains(t, err, "already registered")
	assert.Equal(t, 1, registry.Count())

	_, err = registry.Get("missing")
	assert.ErrorContains(t, err, "not found")
}

func TestRegistryListIDsIsACopy(t *testing.T) {
	registry := operations.NewRegistry()
	require.NoError(t, registry.Register(testutil.SucceedingStep("a")))

	ids := registry.ListIDs()
	ids[0] = "changed"
	assert.Equal(t, []string{"a"}, registry.ListIDs())
}
