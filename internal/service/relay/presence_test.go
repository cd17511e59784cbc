package relay

import "testing"

func TestRegistryMultiConnPerUser(t *testing.T) {
	registry := NewRegistry()
	c1 := &Client{connId: "c1"}
	c2 := &Client{connId: "c2"}

	registry.Register(c1, "U_1")
	registry.Register(c2, "U_1")

	if !registry.IsOnline("U_1") {
		t.Fatal("user should be online after register")
	}
	if got := len(registry.ConnectionsFor("U_1")); got != 2 {
		t.Fatalf("ConnectionsFor = %d, want 2", got)
	}
	if got := len(registry.AllClients()); got != 2 {
		t.Fatalf("AllClients = %d, want 2", got)
	}

	// 第一条连接断开，用户仍然在线
	userId, remaining, ok := registry.Unregister(c1)
	if !ok || userId != "U_1" || remaining != 1 {
		t.Fatalf("Unregister c1 = (%q, %d, %v), want (U_1, 1, true)", userId, remaining, ok)
	}
	if !registry.IsOnline("U_1") {
		t.Fatal("user should stay online with one connection left")
	}

	// 最后一条连接断开，用户离线
	userId, remaining, ok = registry.Unregister(c2)
	if !ok || userId != "U_1" || remaining != 0 {
		t.Fatalf("Unregister c2 = (%q, %d, %v), want (U_1, 0, true)", userId, remaining, ok)
	}
	if registry.IsOnline("U_1") {
		t.Fatal("user should be offline after last connection closed")
	}
}

func TestRegistryDoubleUnregisterIsNoop(t *testing.T) {
	registry := NewRegistry()
	c := &Client{connId: "c1"}
	registry.Register(c, "U_1")

	if _, _, ok := registry.Unregister(c); !ok {
		t.Fatal("first unregister should succeed")
	}
	if _, _, ok := registry.Unregister(c); ok {
		t.Fatal("second unregister should be a no-op")
	}
}

func TestRegistryUnregisterUnknownConn(t *testing.T) {
	registry := NewRegistry()
	if _, _, ok := registry.Unregister(&Client{connId: "ghost"}); ok {
		t.Fatal("unregister of unknown connection should be a no-op")
	}
}

func TestRegistryUserOf(t *testing.T) {
	registry := NewRegistry()
	c := &Client{connId: "c1"}
	registry.Register(c, "U_9")

	userId, ok := registry.UserOf(c)
	if !ok || userId != "U_9" {
		t.Fatalf("UserOf = (%q, %v), want (U_9, true)", userId, ok)
	}
	if _, ok := registry.UserOf(&Client{connId: "other"}); ok {
		t.Fatal("UserOf for unknown connection should report false")
	}
}
