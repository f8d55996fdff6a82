package camera

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSimWebcamWarmup(t *testing.T) {
	src, err := Open(Settings{Name: "cam1", Kind: KindSimWebcam, FPS: 200, WarmupFrames: 2})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err = src.Probe(ctx); !errors.Is(err, ErrNotOpened) {
		t.Fatalf("probe before open: %v", err)
	}
	if err = src.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	for i := 0; i < 2; i++ {
		b, err := src.Probe(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if b.AllOK(src.Channels()) {
			t.Fatalf("probe %d: expected warm-up failure", i)
		}
	}
	b, err := src.Probe(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !b.AllOK(src.Channels()) {
		t.Fatal("expected device to be ready after warm-up")
	}
	f := b.Frames[Color]
	if f.Format != FormatRGB24 || len(f.Data) != DefaultSimWidth*DefaultSimHeight*3 {
		t.Fatalf("unexpected frame %s %d", f.Format, len(f.Data))
	}
}

func TestSimWebcamFailFrom(t *testing.T) {
	src := NewSimWebcam(Settings{Name: "cam1", FPS: 500, FailFrom: 3})
	ctx := context.Background()
	if err := src.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	for i := 0; i < 5; i++ {
		b, err := src.Sample(ctx, i)
		if i < 3 {
			if err != nil || !b.OK(Color) {
				t.Fatalf("frame %d: %v", i, err)
			}
			continue
		}
		if !errors.Is(err, ErrReadFailed) {
			t.Fatalf("frame %d: expected read failure, got %v", i, err)
		}
	}
}

func TestSimDepthSkeleton(t *testing.T) {
	src := NewSimDepth(Settings{Name: "kinect", FPS: 500, BodyEvery: 2})
	ctx := context.Background()
	if err := src.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	if !src.HasSkeleton() || len(src.Channels()) != 3 {
		t.Fatal("depth device must report three channels and a skeleton")
	}
	for i := 0; i < 4; i++ {
		b, err := src.Sample(ctx, i)
		if err != nil {
			t.Fatal(err)
		}
		if !b.AllOK(src.Channels()) {
			t.Fatalf("frame %d: not all channels ok", i)
		}
		if (b.Skeleton != nil) != (i%2 == 0) {
			t.Fatalf("frame %d: skeleton present = %v", i, b.Skeleton != nil)
		}
		if b.Frames[Depth].Format != FormatGray16 {
			t.Fatal("depth must be gray16")
		}
	}
}

func TestSimCancel(t *testing.T) {
	src := NewSimWebcam(Settings{Name: "slow", FPS: 1})
	if err := src.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := src.Probe(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
}

func TestOpenUnknownKind(t *testing.T) {
	if _, err := Open(Settings{Name: "x", Kind: "thermal"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if _, err := Open(Settings{Kind: KindSimWebcam}); err == nil {
		t.Fatal("expected error for empty name")
	}
}
