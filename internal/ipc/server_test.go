package ipc

import (
	"io"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStatusRoundTrip(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	want := StatusData{
		UptimeSeconds: 42,
		WindowCount:   3,
		VisibleCount:  2,
		DamageEvents:  17,
		PaintCount:    9,
		Stacking:      []uint32{0x10, 0x30, 0x20},
	}
	srv, err := NewServer(func() StatusData { return want }, testLogger())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	got, err := NewClient().GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !got.Running {
		t.Fatal("server must report running")
	}
	if got.WindowCount != want.WindowCount || got.VisibleCount != want.VisibleCount {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if got.DamageEvents != want.DamageEvents || got.PaintCount != want.PaintCount {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if len(got.Stacking) != 3 || got.Stacking[0] != 0x10 || got.Stacking[2] != 0x20 {
		t.Fatalf("stacking = %v", got.Stacking)
	}
}

func TestUnknownCommandRejected(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	srv, err := NewServer(func() StatusData { return StatusData{} }, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	defer srv.Stop()

	c := NewClient()
	if _, err := c.roundTrip(&Request{Command: "NOPE"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestClientWithoutServer(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	if _, err := NewClient().GetStatus(); err == nil {
		t.Fatal("expected error when no compositor is running")
	}
}
