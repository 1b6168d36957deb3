package groups

import (
	"context"
	"reflect"
	"testing"
)

func TestAssignAndLookup(t *testing.T) {
	d := NewMemoryDirectory()
	d.Assign(7, "threathunting")
	d.Assign(7, "soc")
	d.Assign(7, "soc") // repeated assignment is a no-op

	got, err := d.GroupsFor(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"threathunting", "soc"}) {
		t.Fatalf("unexpected groups %v", got)
	}
}

func TestAssignMovesGroupBetweenUsers(t *testing.T) {
	d := NewMemoryDirectory()
	d.Assign(7, "threathunting")
	d.Assign(9, "threathunting")

	old, err := d.GroupsFor(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(old) != 0 {
		t.Fatalf("expected group removed from previous owner, got %v", old)
	}
	now, err := d.GroupsFor(context.Background(), 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(now, []string{"threathunting"}) {
		t.Fatalf("expected group moved to new owner, got %v", now)
	}
}

func TestGroupsForUnknownUser(t *testing.T) {
	d := NewMemoryDirectory()
	got, err := d.GroupsFor(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no groups, got %v", got)
	}
}
