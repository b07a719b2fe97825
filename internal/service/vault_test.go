package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"docvault/internal/model"
	"docvault/internal/repository/memory"
	"docvault/internal/storage"
	"docvault/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vault struct {
	docs  DocumentService
	props PropertyService
	flow  WorkflowService
}

func newVault(t *testing.T) vault {
	t.Helper()
	store := memory.New()
	reg := contractRegistry(t)
	classes := NewClasses(testClasses, reg)
	return vault{
		docs:  NewDocumentService(storage.NewNop(), store, reg, classes, "Admin"),
		props: NewPropertyService(store, classes),
		flow:  NewWorkflowService(store, reg),
	}
}

func TestVault_Scenario(t *testing.T) {
	ctx := context.Background()
	v := newVault(t)

	d1, err := v.docs.Create(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateDraft, d1.State)
	assert.Equal(t, model.Unclassified, d1.Class)

	got, err := v.docs.Get(ctx, d1.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", got.Filename)

	require.NoError(t, v.props.SetProperty(ctx, d1.ID, model.ClassKey, "Invoice"))
	invoices, err := v.docs.List(ctx, "Invoice")
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, d1.ID, invoices[0].ID)

	doc, err := v.flow.Transition(ctx, d1.ID, workflow.EventSubmit)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateReview, doc.State)

	_, err = v.flow.Transition(ctx, d1.ID, workflow.EventSubmit)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	doc, err = v.flow.Transition(ctx, d1.ID, workflow.EventApprove)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateApproved, doc.State)

	_, err = v.flow.Transition(ctx, d1.ID, workflow.EventApprove)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestVault_DefaultProperties(t *testing.T) {
	ctx := context.Background()
	v := newVault(t)

	d, err := v.docs.Create(ctx, "b.pdf")
	require.NoError(t, err)

	props, err := v.props.Properties(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Property{
		{Key: model.ClassKey, Value: model.Unclassified},
		{Key: model.CreatedByKey, Value: "Admin"},
	}, props)
}

func TestVault_SetSameValueIsNoop(t *testing.T) {
	ctx := context.Background()
	v := newVault(t)
	d, err := v.docs.Create(ctx, "c.pdf")
	require.NoError(t, err)

	require.NoError(t, v.props.SetProperty(ctx, d.ID, "Customer", "Acme"))
	before, err := v.props.Properties(ctx, d.ID)
	require.NoError(t, err)

	require.NoError(t, v.props.SetProperty(ctx, d.ID, "Customer", "Acme"))
	after, err := v.props.Properties(ctx, d.ID)
	require.NoError(t, err)

	assert.Equal(t, before, after)
	assert.Equal(t, "Acme", propValues(after)["Customer"])
}

func TestVault_ListViews(t *testing.T) {
	ctx := context.Background()
	v := newVault(t)

	classes := []string{"Invoice", "Contract", "Invoice", model.Unclassified, "Invoice"}
	ids := make([]string, 0, len(classes))
	for i, c := range classes {
		d, err := v.docs.Create(ctx, fmt.Sprintf("doc-%d.pdf", i))
		require.NoError(t, err)
		if c != model.Unclassified {
			require.NoError(t, v.props.SetClass(ctx, d.ID, c))
		}
		ids = append(ids, d.ID)
	}

	all, err := v.docs.List(ctx, model.AllView)
	require.NoError(t, err)
	require.Len(t, all, len(classes))
	for i, d := range all {
		assert.Equal(t, ids[i], d.ID)
	}

	invoices, err := v.docs.List(ctx, "Invoice")
	require.NoError(t, err)
	assert.Equal(t, []string{ids[0], ids[2], ids[4]}, []string{invoices[0].ID, invoices[1].ID, invoices[2].ID})
	for _, d := range invoices {
		assert.Equal(t, "Invoice", d.Class)
	}

	empty, err := v.docs.List(ctx, "Proposal")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = v.docs.List(ctx, "NoSuchClass")
	assert.ErrorIs(t, err, ErrUnknownView)
}

func TestVault_ConcurrentDistinctKeys(t *testing.T) {
	ctx := context.Background()
	v := newVault(t)
	d, err := v.docs.Create(ctx, "d.pdf")
	require.NoError(t, err)

	keys := make([]string, 50)
	for i := range keys {
		keys[i] = fmt.Sprintf("K%02d", i)
	}

	var wg sync.WaitGroup
	for _, k := range keys {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			assert.NoError(t, v.props.SetProperty(ctx, d.ID, k, k+"-v"))
		}(k)
	}
	wg.Wait()

	props, err := v.props.Properties(ctx, d.ID)
	require.NoError(t, err)
	set := propValues(props)
	for _, k := range keys {
		assert.Equal(t, k+"-v", set[k], k)
	}
}

func TestVault_ConcurrentSubmitAppliesOnce(t *testing.T) {
	ctx := context.Background()
	v := newVault(t)
	d, err := v.docs.Create(ctx, "e.pdf")
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		illegal int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := v.flow.Transition(ctx, d.ID, workflow.EventSubmit)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case assert.ErrorIs(t, err, ErrIllegalTransition):
				illegal++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, 19, illegal)
}

func TestVault_ClassWorkflowFollowsClassProperty(t *testing.T) {
	ctx := context.Background()
	v := newVault(t)
	d, err := v.docs.Create(ctx, "f.pdf")
	require.NoError(t, err)

	_, err = v.flow.Transition(ctx, d.ID, workflow.EventSubmit)
	require.NoError(t, err)

	_, err = v.flow.Transition(ctx, d.ID, "reject")
	assert.ErrorIs(t, err, ErrIllegalTransition)

	require.NoError(t, v.props.SetClass(ctx, d.ID, "Contract"))
	doc, err := v.flow.TransitionTo(ctx, d.ID, workflow.StateDraft)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateDraft, doc.State)
}

func TestVault_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	v := newVault(t)
	d, err := v.docs.Create(ctx, "g.pdf")
	require.NoError(t, err)

	require.NoError(t, v.docs.Delete(ctx, d.ID))

	_, err = v.docs.Get(ctx, d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = v.props.Properties(ctx, d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, v.props.SetProperty(ctx, d.ID, "k", "v"), ErrNotFound)
	_, err = v.flow.Transition(ctx, d.ID, workflow.EventSubmit)
	assert.ErrorIs(t, err, ErrNotFound)
}

func propValues(props []model.Property) map[string]string {
	m := make(map[string]string, len(props))
	for _, p := range props {
		m[p.Key] = p.Value
	}
	return m
}
