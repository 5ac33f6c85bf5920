package main

import "testing"

func TestFlagsAccessorsRoundTrip(t *testing.T) {
	var f Flags
	f.SetZero(true)
	f.SetCarry(true)
	f.SetHalt(true)

	if !f.Zero() {
		t.Fatal("Zero() = false, want true")
	}
	if !f.Carry() {
		t.Fatal("Carry() = false, want true")
	}
	if !f.Halt() {
		t.Fatal("Halt() = false, want true")
	}
	if f.Negative() || f.HalfCarry() || f.Overflow() || f.Underflow() || f.Stop() {
		t.Fatal("unrelated bits were set")
	}

	f.SetCarry(false)
	if f.Carry() {
		t.Fatal("Carry() still true after SetCarry(false)")
	}
	if !f.Zero() {
		t.Fatal("clearing Carry disturbed Zero")
	}
}

func TestFlagsSnapshotStructuralComparison(t *testing.T) {
	var a, b Flags
	a.SetZero(true)
	a.SetCarry(true)
	b.SetCarry(true)
	b.SetZero(true)

	if a.Snapshot() != b.Snapshot() {
		t.Fatalf("snapshots differ despite identical bit sets: %+v vs %+v", a.Snapshot(), b.Snapshot())
	}

	b.SetOverflow(true)
	if a.Snapshot() == b.Snapshot() {
		t.Fatal("snapshots equal despite differing Overflow bit")
	}
}
