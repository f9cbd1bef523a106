package models

import "testing"

func TestPairKeyIsOrderIndependent(t *testing.T) {
	if PairKey("bob", "alice") != PairKey("alice", "bob") {
		t.Fatal("expected the same key for both directions")
	}
	if got := PairKey("bob", "alice"); got != "5:alice:bob" {
		t.Fatalf("expected 5:alice:bob got %s", got)
	}
}

func TestPairKeyDistinguishesIDsWithSeparators(t *testing.T) {
	cases := [][2][2]string{
		{{"a:b", "c"}, {"a", "b:c"}},
		{{"1:a", "b"}, {"1", "a:b"}},
		{{"", "a:b"}, {"a", "b"}},
	}
	for _, tc := range cases {
		first, second := PairKey(tc[0][0], tc[0][1]), PairKey(tc[1][0], tc[1][1])
		if first == second {
			t.Fatalf("pairs %v and %v share key %q", tc[0], tc[1], first)
		}
	}
}

func TestUserMembers(t *testing.T) {
	user := User{ID: "alice", Followers: []string{"bob"}, Connections: []string{"carol"}}

	if !user.Has(SetFollowers, "bob") || user.Has(SetFollowing, "bob") {
		t.Fatal("unexpected followers membership")
	}
	if !user.Has(SetConnections, "carol") {
		t.Fatal("expected carol to be a connection")
	}
	if MemberSet("admins").Valid() || user.Members(MemberSet("admins")) != nil {
		t.Fatal("expected unknown set to be rejected")
	}
}
