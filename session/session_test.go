package session

import (
	"testing"

	"github.com/sheetmcp/sheetcore/auth"
)

func TestOpen_CreatesSessionWithIndependentTaskAndEventStores(t *testing.T) {
	m := New(Config{})
	s1, err := m.Open(&auth.Capability{Subject: "user1"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s2, err := m.Open(&auth.Capability{Subject: "user1"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	s1.Tasks.CreateTask(s1.ID)
	if got := s2.Tasks.ListTasks(s2.ID, ""); len(got.Tasks) != 0 {
		t.Error("expected session 2's task store to be independent of session 1's")
	}
}

func TestOpen_RequiresAnAuthenticatedSubject(t *testing.T) {
	m := New(Config{})
	if _, err := m.Open(nil); err == nil {
		t.Error("expected Open(nil) to fail")
	}
	if _, err := m.Open(&auth.Capability{}); err == nil {
		t.Error("expected Open with empty Subject to fail")
	}
}

func TestOpen_EvictsOldestSessionPastMaxPerUser(t *testing.T) {
	m := New(Config{MaxPerUser: 2})
	cap := &auth.Capability{Subject: "user1"}

	first, _ := m.Open(cap)
	_, _ = m.Open(cap)
	third, _ := m.Open(cap)

	if m.CountForUser("user1") != 2 {
		t.Fatalf("CountForUser = %d, want 2", m.CountForUser("user1"))
	}
	if _, err := m.Get(first.ID); err == nil {
		t.Error("expected the oldest session to have been evicted")
	}
	if _, err := m.Get(third.ID); err != nil {
		t.Error("expected the newest session to still be live")
	}
}

func TestClose_RemovesSessionAndFreesUserSlot(t *testing.T) {
	m := New(Config{MaxPerUser: 1})
	cap := &auth.Capability{Subject: "user1"}

	first, _ := m.Open(cap)
	m.Close(first.ID)

	if m.CountForUser("user1") != 0 {
		t.Fatalf("CountForUser = %d, want 0 after Close", m.CountForUser("user1"))
	}
	if _, err := m.Get(first.ID); err == nil {
		t.Error("expected closed session to be gone")
	}

	second, err := m.Open(cap)
	if err != nil {
		t.Fatalf("Open after Close: %v", err)
	}
	if m.CountForUser("user1") != 1 {
		t.Errorf("CountForUser = %d, want 1", m.CountForUser("user1"))
	}
	_ = second
}

func TestOpen_SeparateUsersHaveIndependentCaps(t *testing.T) {
	m := New(Config{MaxPerUser: 1})
	a, _ := m.Open(&auth.Capability{Subject: "user1"})
	b, _ := m.Open(&auth.Capability{Subject: "user2"})

	if _, err := m.Get(a.ID); err != nil {
		t.Error("user1's session should not be evicted by user2 opening one")
	}
	if _, err := m.Get(b.ID); err != nil {
		t.Error("user2's session should be live")
	}
}
