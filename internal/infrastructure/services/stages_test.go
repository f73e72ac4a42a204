package services_test

import (
	"strings"
	"testing"
	"time"

	"github.com/sophialabs/coopwatch/internal/domain/frame"
	"github.com/sophialabs/coopwatch/internal/infrastructure/services"
)

func TestStageSet_EnsureKeepsFrames(t *testing.T) {
	set := services.NewStageSet()

	st, err := set.Ensure("north", 4096)
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	st.Put(frame.Frame{Camera: "north", Seq: 1, Timestamp: time.Unix(1, 0), Data: []byte("jpeg")})

	again, err := set.Ensure("north", 4096)
	if err != nil {
		t.Fatal(err)
	}
	if again != st {
		t.Fatal("expected the same stage for an unchanged capacity")
	}
	if again.Stats().Frames != 1 {
		t.Error("frames lost on re-ensure")
	}

	resized, err := set.Ensure("north", 8192)
	if err != nil {
		t.Fatal(err)
	}
	if resized == st || resized.Stats().Capacity != 8192 || resized.Stats().Frames != 0 {
		t.Errorf("expected a fresh stage after resize, got %+v", resized.Stats())
	}
}

func TestStageSet_EnsureInvalidCapacity(t *testing.T) {
	set := services.NewStageSet()
	if _, err := set.Ensure("north", 0); err == nil {
		t.Error("expected error for zero capacity")
	}
	if _, ok := set.Get("north"); ok {
		t.Error("failed stage must not be registered")
	}
}

func TestStageSet_Retain(t *testing.T) {
	set := services.NewStageSet()
	for _, id := range []string{"a", "b", "c"} {
		set.Ensure(id, 1024)
	}

	dropped := set.Retain([]string{"b"})
	if strings.Join(dropped, ",") != "a,c" {
		t.Errorf("unexpected dropped %v", dropped)
	}
	if strings.Join(set.IDs(), ",") != "b" {
		t.Errorf("unexpected remaining %v", set.IDs())
	}
}
