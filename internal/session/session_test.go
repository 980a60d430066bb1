package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func touch(t *testing.T, p string) {
	t.Helper()
	if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
}

func assertGone(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s still exists (err=%v)", p, err)
		}
	}
}

func TestWithSessionCleansUpOnReturn(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	var seen []string

	rep, err := m.WithSession([]string{"audio", "metadata"}, func(s *Session) error {
		a, md := s.Path("audio"), s.Path("metadata")
		if a == md {
			t.Fatal("paths must be unique")
		}
		touch(t, a+".wav")
		touch(t, md+".json")
		chunk := s.TempPath("chunk", ".wav")
		touch(t, chunk)
		seen = append(seen, a+".wav", md+".json", chunk, s.Dir)
		return nil
	})
	if err != nil {
		t.Fatalf("WithSession: %v", err)
	}
	assertGone(t, seen...)
	if rep.Allocated != 3 || rep.Removed != 3 || len(rep.Failures) != 0 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if m.Active() != 0 {
		t.Fatalf("active = %d", m.Active())
	}
}

func TestWithSessionCleansUpOnError(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	want := errors.New("stage failed")
	var dir string

	_, err := m.WithSession([]string{"audio"}, func(s *Session) error {
		dir = s.Dir
		touch(t, s.Path("audio")+".wav")
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v", err)
	}
	assertGone(t, dir)
}

func TestWithSessionCleansUpOnPanic(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	var file string

	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Fatalf("recovered %v, want boom", r)
			}
		}()
		_, _ = m.WithSession([]string{"audio"}, func(s *Session) error {
			file = s.Path("audio") + ".wav"
			touch(t, file)
			panic("boom")
		})
	}()

	assertGone(t, file, filepath.Dir(file))
	if m.Active() != 0 {
		t.Fatalf("active = %d", m.Active())
	}
}

func TestReleaseAll(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	s1, err := m.Open("audio")
	if err != nil {
		t.Fatal(err)
	}
	s2, err := m.Open("audio")
	if err != nil {
		t.Fatal(err)
	}
	touch(t, s1.Path("audio"))

	reports := m.ReleaseAll()
	if len(reports) != 2 {
		t.Fatalf("reports = %d", len(reports))
	}
	assertGone(t, s1.Dir, s2.Dir)

	// second release is a no-op returning the same report
	if again := s1.Release(); again.SessionID != s1.ID {
		t.Fatalf("unexpected report %+v", again)
	}
}

func TestReleaseOnCancel(t *testing.T) {
	cases := []struct {
		name        string
		stopInGrace bool
		wantActive  int
	}{
		{"runs unwind within grace", true, 1},
		{"grace expires", false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewManager(t.TempDir(), nil)
			s, err := m.Open("audio")
			if err != nil {
				t.Fatal(err)
			}
			ctx, cancel := context.WithCancel(context.Background())
			stop := m.ReleaseOnCancel(ctx, 50*time.Millisecond)
			cancel()

			if tc.stopInGrace {
				// nothing is released while the run may still be writing
				if m.Active() != 1 {
					t.Fatalf("released before grace: active = %d", m.Active())
				}
				stop()
			} else {
				time.Sleep(200 * time.Millisecond)
				stop()
				assertGone(t, s.Dir)
			}
			if m.Active() != tc.wantActive {
				t.Fatalf("active = %d, want %d", m.Active(), tc.wantActive)
			}
			s.Release()
		})
	}
}

func TestReleaseOnCancelStopsWithoutCancel(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	if _, err := m.Open("audio"); err != nil {
		t.Fatal(err)
	}
	stop := m.ReleaseOnCancel(context.Background(), time.Millisecond)
	stop()
	stop()
	if m.Active() != 1 {
		t.Fatalf("active = %d", m.Active())
	}
	m.ReleaseAll()
}
