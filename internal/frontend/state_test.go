package frontend

import (
	"reflect"
	"testing"
)

func TestResetTokenChangesToken(t *testing.T) {
	state := New(nil)
	before := state.AuthToken()

	state.ResetToken()

	if state.AuthToken() == before {
		t.Fatal("token must change on reset")
	}
}

func TestPlayerBufferScopedToSession(t *testing.T) {
	state := New(nil)
	state.ResetPlayerList("aaaa1111")

	if !state.AddPlayer("aaaa1111", Player{ID: 1, Name: "alice"}) {
		t.Fatal("update for the current session was rejected")
	}
	if state.AddPlayer("bbbb2222", Player{ID: 2, Name: "bob"}) {
		t.Fatal("update from a stale session must be dropped")
	}

	want := []Player{{ID: 1, Name: "alice"}}
	if got := state.Players(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Players() = %v, want %v", got, want)
	}
}

func TestRemovePlayer(t *testing.T) {
	state := New(nil)
	state.ResetPlayerList("aaaa1111")
	state.AddPlayer("aaaa1111", Player{ID: 1, Name: "alice"})
	state.AddPlayer("aaaa1111", Player{ID: 2, Name: "bob"})

	if !state.RemovePlayer("aaaa1111", 1) {
		t.Fatal("known player was not removed")
	}
	if state.RemovePlayer("aaaa1111", 99) {
		t.Fatal("unknown player id must report false")
	}
	if state.RemovePlayer("bbbb2222", 2) {
		t.Fatal("removal from a stale session must be dropped")
	}

	want := []Player{{ID: 2, Name: "bob"}}
	if got := state.Players(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Players() = %v, want %v", got, want)
	}
}

func TestResetPlayerListRebindsSession(t *testing.T) {
	state := New(nil)
	state.ResetPlayerList("aaaa1111")
	state.AddPlayer("aaaa1111", Player{ID: 1, Name: "alice"})

	state.ResetPlayerList("bbbb2222")

	if got := state.Players(); len(got) != 0 {
		t.Fatalf("reset must empty the buffer, got %v", got)
	}
	if state.AddPlayer("aaaa1111", Player{ID: 1, Name: "alice"}) {
		t.Fatal("the old session must be stale after a reset")
	}
	if !state.AddPlayer("bbbb2222", Player{ID: 3, Name: "carol"}) {
		t.Fatal("the new session was rejected")
	}
}

func TestResourcesLifecycle(t *testing.T) {
	state := New(nil)
	state.SetResources([]string{"chat", "mapmanager"})

	if got := state.Resources(); !reflect.DeepEqual(got, []string{"chat", "mapmanager"}) {
		t.Fatalf("Resources() = %v", got)
	}

	state.ResetResources()
	if got := state.Resources(); len(got) != 0 {
		t.Fatalf("expected no resources after reset, got %v", got)
	}
}

func TestNotificationsEmitted(t *testing.T) {
	var types []string
	state := New(func(msgType string, payload interface{}) {
		types = append(types, msgType)
	})

	state.ResetToken()
	state.ResetPlayerList("aaaa1111")
	state.AddPlayer("aaaa1111", Player{ID: 1, Name: "alice"})
	state.RemovePlayer("aaaa1111", 1)
	state.ResetResources()

	want := []string{"tokenReset", "playerlistReset", "playerJoined", "playerLeft", "resourcesReset"}
	if !reflect.DeepEqual(types, want) {
		t.Fatalf("broadcasts = %v, want %v", types, want)
	}
}
