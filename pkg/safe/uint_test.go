package safe

import (
	"math"
	"testing"
)

type conversionCase struct {
	name    string
	convert func() (any, error)
	want    any
	wantErr bool
}

func runConversionCases(t *testing.T, fn string, cases []conversionCase) {
	t.Helper()

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.convert()
			if (err != nil) != tc.wantErr {
				t.Fatalf("%s() error = %v, wantErr %v", fn, err, tc.wantErr)
			}
			if err == nil && got != tc.want {
				t.Fatalf("%s() got = %v, want %v", fn, got, tc.want)
			}
		})
	}
}

func TestUint32(t *testing.T) {
	runConversionCases(t, "Uint32", []conversionCase{
		{name: "int within range", convert: func() (any, error) { v, err := Uint32(42); return v, err }, want: uint32(42)},
		{name: "int negative", convert: func() (any, error) { v, err := Uint32(-1); return v, err }, wantErr: true},
		{name: "int64 overflow", convert: func() (any, error) { v, err := Uint32(int64(math.MaxUint32) + 1); return v, err }, wantErr: true},
		{name: "int64 boundary", convert: func() (any, error) { v, err := Uint32(int64(math.MaxUint32)); return v, err }, want: uint32(math.MaxUint32)},
		{name: "uint64 overflow", convert: func() (any, error) { v, err := Uint32(uint64(math.MaxUint32) + 1); return v, err }, wantErr: true},
		{name: "int32 negative", convert: func() (any, error) { v, err := Uint32(int32(-5)); return v, err }, wantErr: true},
		{name: "uint small", convert: func() (any, error) { v, err := Uint32(uint(7)); return v, err }, want: uint32(7)},
	})
}

func TestUint64(t *testing.T) {
	runConversionCases(t, "Uint64", []conversionCase{
		{name: "int positive", convert: func() (any, error) { v, err := Uint64(99); return v, err }, want: uint64(99)},
		{name: "int64 negative", convert: func() (any, error) { v, err := Uint64(int64(-100)); return v, err }, wantErr: true},
		{name: "uint64 max", convert: func() (any, error) { v, err := Uint64(uint64(math.MaxUint64)); return v, err }, want: uint64(math.MaxUint64)},
		{name: "int32 zero", convert: func() (any, error) { v, err := Uint64(int32(0)); return v, err }, want: uint64(0)},
	})
}

func TestInt64(t *testing.T) {
	runConversionCases(t, "Int64", []conversionCase{
		{name: "negative kept", convert: func() (any, error) { v, err := Int64(int32(-7)); return v, err }, want: int64(-7)},
		{name: "uint64 boundary", convert: func() (any, error) { v, err := Int64(uint64(math.MaxInt64)); return v, err }, want: int64(math.MaxInt64)},
		{name: "uint64 overflow", convert: func() (any, error) { v, err := Int64(uint64(math.MaxInt64) + 1); return v, err }, wantErr: true},
	})
}
