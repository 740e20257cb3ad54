package plugin

import (
	"context"
	"errors"
	"testing"
)

type fakeProvider struct {
	meta        Metadata
	activations int
	active      bool
	activateErr error
}

func (f *fakeProvider) Metadata() Metadata { return f.meta }

func (f *fakeProvider) ValidateConfig(ctx context.Context) Validation { return Valid() }

func (f *fakeProvider) Generate(ctx context.Context, prompt string, callCtx map[string]any) (string, error) {
	return "generated: " + prompt, nil
}

func (f *fakeProvider) Activate(ctx context.Context, hostCtx map[string]any) error {
	if f.activateErr != nil {
		return f.activateErr
	}
	f.activations++
	f.active = true
	return nil
}

func (f *fakeProvider) Deactivate(ctx context.Context, hostCtx map[string]any) error {
	f.active = false
	return nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	provider := &fakeProvider{meta: Metadata{Name: "fake"}}
	if err := reg.Register(provider); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := reg.Get("fake")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != provider {
		t.Fatalf("expected registered provider back")
	}

	if _, err := reg.Get("missing"); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&fakeProvider{meta: Metadata{Name: "fake"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := reg.Register(&fakeProvider{meta: Metadata{Name: "fake"}})
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestRegistryRejectsInvalidProviders(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(nil); err == nil {
		t.Fatalf("expected error for nil provider")
	}
	if err := reg.Register(&fakeProvider{}); err == nil {
		t.Fatalf("expected error for empty name")
	}
}

func TestRegistryFailedRegisterLeavesNothingBehind(t *testing.T) {
	reg := NewRegistry()
	good := &fakeProvider{meta: Metadata{Name: "good"}}
	err := reg.Register(good, &fakeProvider{meta: Metadata{Name: "good"}})
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	if _, err := reg.Get("good"); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("failed batch must not register any provider")
	}
}

func TestRegistryEnforcesCoreVersion(t *testing.T) {
	reg := NewRegistry(WithCoreVersion("0.2.1"))
	ok := &fakeProvider{meta: Metadata{Name: "ok", RequiresCore: ">=0.2, <0.3"}}
	if err := reg.Register(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stale := &fakeProvider{meta: Metadata{Name: "stale", RequiresCore: ">=0.3"}}
	if err := reg.Register(stale); !errors.Is(err, ErrIncompatibleCore) {
		t.Fatalf("expected ErrIncompatibleCore, got %v", err)
	}
}

func TestRegistryByCapabilityStableOrder(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(
		&fakeProvider{meta: Metadata{Name: "zeta", Provides: []string{"provider.llm"}}},
		&fakeProvider{meta: Metadata{Name: "alpha", Provides: []string{"provider.llm"}}},
		&fakeProvider{meta: Metadata{Name: "other", Provides: []string{"provider.embeddings"}}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	llm := reg.ByCapability("provider.llm")
	if len(llm) != 2 {
		t.Fatalf("expected 2 llm providers, got %d", len(llm))
	}
	if llm[0].Metadata().Name != "alpha" || llm[1].Metadata().Name != "zeta" {
		t.Fatalf("expected stable name order, got %s, %s", llm[0].Metadata().Name, llm[1].Metadata().Name)
	}

	if got := reg.ByCapability("provider.unknown"); len(got) != 0 {
		t.Fatalf("expected no providers, got %d", len(got))
	}
}

func TestRegistryListSorted(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(
		&fakeProvider{meta: Metadata{Name: "b"}},
		&fakeProvider{meta: Metadata{Name: "a"}},
	); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	metas := reg.List()
	if len(metas) != 2 || metas[0].Name != "a" || metas[1].Name != "b" {
		t.Fatalf("expected sorted metadata list, got %+v", metas)
	}
}

func TestRegistryLifecycle(t *testing.T) {
	reg := NewRegistry()
	first := &fakeProvider{meta: Metadata{Name: "first"}}
	second := &fakeProvider{meta: Metadata{Name: "second"}}
	if err := reg.Register(first, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	if err := reg.ActivateAll(ctx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.active || !second.active {
		t.Fatalf("expected both providers active")
	}

	// Re-activation is a no-op for already active providers.
	if err := reg.ActivateAll(ctx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.activations != 1 {
		t.Fatalf("expected single activation, got %d", first.activations)
	}

	if err := reg.DeactivateAll(ctx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.active || second.active {
		t.Fatalf("expected both providers inactive")
	}
}

func TestRegistryActivateAllStopsAtFailure(t *testing.T) {
	reg := NewRegistry()
	bad := &fakeProvider{meta: Metadata{Name: "aaa-bad"}, activateErr: errors.New("no client")}
	after := &fakeProvider{meta: Metadata{Name: "zzz-after"}}
	if err := reg.Register(bad, after); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := reg.ActivateAll(context.Background(), nil)
	if err == nil {
		t.Fatalf("expected activation error")
	}
	if after.active {
		t.Fatalf("providers after the failure must stay inactive")
	}
}
