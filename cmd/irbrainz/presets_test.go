package main

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *PresetStore {
	t.Helper()
	store, err := OpenPresetStore(filepath.Join(t.TempDir(), "sub", "presets.db"))
	if err != nil {
		t.Fatalf("OpenPresetStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPresetStore_SaveGetListDelete(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	st := LightState{On: true, Brightness: 154, Color: [4]uint8{1, 2, 3, 4}, Effect: 9, Speed: 20, Intensity: 30, Palette: 6}
	if err := store.Save(ctx, 3, st); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, 1, LightState{Brightness: 5}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(ctx, 3)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := st
	want.Preset = 3
	if got != want {
		t.Fatalf("Get=%+v, want %+v", got, want)
	}

	// Saving again replaces the row.
	st.Brightness = 198
	if err := store.Save(ctx, 3, st); err != nil {
		t.Fatalf("Save (replace): %v", err)
	}
	got, _ = store.Get(ctx, 3)
	if got.Brightness != 198 {
		t.Fatalf("replace not applied: %+v", got)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Num != 1 || list[1].Num != 3 {
		t.Fatalf("List=%+v, want presets 1 and 3", list)
	}
	if list[1].UpdatedAt.IsZero() {
		t.Fatalf("updated_at not set")
	}

	if err := store.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, 1); !errors.Is(err, ErrPresetNotFound) {
		t.Fatalf("Get after delete: %v, want ErrPresetNotFound", err)
	}
	if err := store.Delete(ctx, 1); !errors.Is(err, ErrPresetNotFound) {
		t.Fatalf("second Delete: %v, want ErrPresetNotFound", err)
	}
}

func TestPresetStore_RejectsInvalidNumber(t *testing.T) {
	store := openTestStore(t)
	if err := store.Save(context.Background(), 0, LightState{}); err == nil {
		t.Fatalf("expected error for preset 0")
	}
}

func TestPresetApplier_Apply(t *testing.T) {
	store := openTestStore(t)
	light := newTestLight(false)
	applier := &presetApplier{store: store, light: light, logger: slog.Default()}

	if applier.Apply(2) {
		t.Fatalf("Apply of a missing preset reported success")
	}

	saved := LightState{Brightness: 72, Color: [4]uint8{0, 0xA0, 0xFF, 0}, Effect: 8, Speed: 1, Intensity: 2, Palette: 3}
	if err := store.Save(context.Background(), 2, saved); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if !applier.Apply(2) {
		t.Fatalf("Apply(2) failed")
	}
	st := light.State()
	if !st.On || st.Brightness != 72 || st.Effect != 8 || st.Preset != 2 {
		t.Fatalf("light not restored: %+v", st)
	}
}

func TestPresetApplier_NoStore(t *testing.T) {
	applier := &presetApplier{light: newTestLight(false), logger: slog.Default()}
	if applier.Apply(1) {
		t.Fatalf("Apply without a store reported success")
	}
}
