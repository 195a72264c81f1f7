package vartab

import (
	"strings"
	"testing"

	simruntime "github.com/simforge/sim-runtime"
)

func thermostatTable() []simruntime.Variable {
	return []simruntime.Variable{
		{Name: "heaterOn", Type: simruntime.Boolean, Direction: simruntime.Input, Index: 0,
			HasStart: true, Start: simruntime.BoolValue(false)},
		{Name: "temperature", Type: simruntime.Real, Direction: simruntime.Output, Index: 1},
		{Name: "supplyTemp", Type: simruntime.Real, Direction: simruntime.Parameter, Index: 2,
			HasStart: true, Start: simruntime.RealValue(45)},
		{Name: "mode", Type: simruntime.Integer, Direction: simruntime.Parameter, Index: 3,
			HasStart: true, Start: simruntime.IntValue(-2)},
	}
}

func TestEncodeDecode(t *testing.T) {
	table := thermostatTable()

	data, err := Encode(table)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded) != len(table) {
		t.Fatalf("decoded %d variables, want %d", len(decoded), len(table))
	}
	for i, want := range table {
		got := decoded[i]
		if got.Name != want.Name || got.Type != want.Type ||
			got.Direction != want.Direction || got.Index != want.Index {
			t.Errorf("variable %d = %+v, want %+v", i, got, want)
		}
		if got.HasStart != want.HasStart {
			t.Errorf("variable %q HasStart = %v, want %v", got.Name, got.HasStart, want.HasStart)
		}
		if want.HasStart && !got.Start.Equal(want.Start) {
			t.Errorf("variable %q start = %v, want %v", got.Name, got.Start, want.Start)
		}
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name string
		vars []simruntime.Variable
		want string
	}{
		{
			name: "empty name",
			vars: []simruntime.Variable{{Name: "", Type: simruntime.Real, Index: 0}},
			want: "unnamed",
		},
		{
			name: "bad type tag",
			vars: []simruntime.Variable{{Name: "x", Type: simruntime.VarType(9), Index: 0}},
			want: "invalid type tag",
		},
		{
			name: "bad direction tag",
			vars: []simruntime.Variable{{Name: "x", Type: simruntime.Real,
				Direction: simruntime.Direction(7), Index: 0}},
			want: "invalid direction tag",
		},
		{
			name: "duplicate name",
			vars: []simruntime.Variable{
				{Name: "x", Type: simruntime.Real, Index: 0},
				{Name: "x", Type: simruntime.Real, Index: 1},
			},
			want: "duplicate variable name",
		},
		{
			name: "index collision",
			vars: []simruntime.Variable{
				{Name: "x", Type: simruntime.Real, Index: 4},
				{Name: "y", Type: simruntime.Real, Index: 4},
			},
			want: "share native index",
		},
		{
			name: "start type mismatch",
			vars: []simruntime.Variable{
				{Name: "x", Type: simruntime.Real, Index: 0,
					HasStart: true, Start: simruntime.IntValue(1)},
			},
			want: "start value type",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.vars)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q missing %q", err, tc.want)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	good, err := Encode(thermostatTable())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty payload", nil},
		{"truncated table", good[:len(good)/2]},
		{"trailing garbage", append(append([]byte{}, good...), 0xFF)},
		{"implausible count", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(tc.data); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}

func TestMaxIndex(t *testing.T) {
	if got := MaxIndex(nil); got != -1 {
		t.Errorf("MaxIndex(nil) = %d, want -1", got)
	}
	if got := MaxIndex(thermostatTable()); got != 3 {
		t.Errorf("MaxIndex = %d, want 3", got)
	}
}
