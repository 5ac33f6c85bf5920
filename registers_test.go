package main

import "testing"

// TestRegisterWidthPreservesOtherBits verifies that writing a narrower
// sub-view leaves the rest of the backing 32-bit register untouched.
func TestRegisterWidthPreservesOtherBits(t *testing.T) {
	cases := []struct {
		name     string
		setup    func(r *registerFile)
		write    Register
		value    uint32
		readBack Register
		want     uint32
	}{
		{
			name:     "write AL preserves AH/AW upper bits",
			setup:    func(r *registerFile) { r.Write(RegisterA, 0xAABBCCDD) },
			write:    RegisterAL,
			value:    0x11,
			readBack: RegisterA,
			want:     0xAABBCC11,
		},
		{
			name:     "write AH preserves AL",
			setup:    func(r *registerFile) { r.Write(RegisterA, 0xAABBCCDD) },
			write:    RegisterAH,
			value:    0x22,
			readBack: RegisterA,
			want:     0xAABB22DD,
		},
		{
			name:     "write AW preserves upper word",
			setup:    func(r *registerFile) { r.Write(RegisterA, 0xAABBCCDD) },
			write:    RegisterAW,
			value:    0x1234,
			readBack: RegisterA,
			want:     0xAABB1234,
		},
		{
			name:     "write BL does not touch A",
			setup:    func(r *registerFile) { r.Write(RegisterA, 0xFFFFFFFF); r.Write(RegisterB, 0) },
			write:    RegisterBL,
			value:    0x99,
			readBack: RegisterA,
			want:     0xFFFFFFFF,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var r registerFile
			tc.setup(&r)
			r.Write(tc.write, tc.value)
			if got := r.Read(tc.readBack); got != tc.want {
				t.Fatalf("Read(%v) = 0x%08X, want 0x%08X", tc.readBack, got, tc.want)
			}
		})
	}
}

// TestRegisterReadMasksToWidth checks that Read never returns bits outside
// the addressed sub-view, regardless of what the backing register holds.
func TestRegisterReadMasksToWidth(t *testing.T) {
	var r registerFile
	r.Write(RegisterC, 0xDEADBEEF)

	cases := []struct {
		id   Register
		want uint32
	}{
		{RegisterC, 0xDEADBEEF},
		{RegisterCW, 0xBEEF},
		{RegisterCH, 0xBE},
		{RegisterCL, 0xEF},
	}
	for _, tc := range cases {
		if got := r.Read(tc.id); got != tc.want {
			t.Fatalf("Read(%v) = 0x%X, want 0x%X", tc.id, got, tc.want)
		}
	}
}

func TestRegisterIndexAndWidth(t *testing.T) {
	cases := []struct {
		id        Register
		wantIndex byte
		wantWidth int
	}{
		{RegisterA, 0, 32},
		{RegisterAW, 0, 16},
		{RegisterAH, 0, 8},
		{RegisterAL, 0, 8},
		{RegisterB, 1, 32},
		{RegisterC, 2, 32},
		{RegisterD, 3, 32},
		{RegisterDL, 3, 8},
	}
	for _, tc := range cases {
		if got := tc.id.Index(); got != tc.wantIndex {
			t.Fatalf("%v.Index() = %d, want %d", tc.id, got, tc.wantIndex)
		}
		if got := tc.id.Width(); got != tc.wantWidth {
			t.Fatalf("%v.Width() = %d, want %d", tc.id, got, tc.wantWidth)
		}
	}
}

func TestRegisterFileReset(t *testing.T) {
	var r registerFile
	r.Write(RegisterA, 1)
	r.Write(RegisterB, 2)
	r.reset()
	if got := r.Read(RegisterA); got != 0 {
		t.Fatalf("A after reset = %d, want 0", got)
	}
	if got := r.Read(RegisterB); got != 0 {
		t.Fatalf("B after reset = %d, want 0", got)
	}
}
