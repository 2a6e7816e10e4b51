package ffm

import "testing"

func TestMulBasic(t *testing.T) {
	const mod = 1 << 16

	a := New[Elem64](2, 3, mod)
	vals := []uint64{1, 2, 3, 4, 5, 6}
	for i, v := range vals {
		a.Set(uint64(i/3), uint64(i%3), v)
	}

	b := New[Elem64](3, 2, mod)
	bvals := []uint64{7, 8, 9, 10, 11, 12}
	for i, v := range bvals {
		b.Set(uint64(i/2), uint64(i%2), v)
	}

	c, err := Mul(a, b)
	if err != nil {
		t.Fatalf("Mul failed: %v", err)
	}

	// Expected via manual matmul: [[1,2,3],[4,5,6]] * [[7,8],[9,10],[11,12]]
	want := [][]uint64{
		{1*7 + 2*9 + 3*11, 1*8 + 2*10 + 3*12},
		{4*7 + 5*9 + 6*11, 4*8 + 5*10 + 6*12},
	}
	for i := uint64(0); i < 2; i++ {
		for j := uint64(0); j < 2; j++ {
			if got := c.Get(i, j); got != want[i][j]%mod {
				t.Errorf("C[%d][%d] = %d, want %d", i, j, got, want[i][j]%mod)
			}
		}
	}
}

func TestMulDimensionMismatch(t *testing.T) {
	a := New[Elem64](2, 3, 1<<16)
	b := New[Elem64](2, 2, 1<<16)
	if _, err := Mul(a, b); err == nil {
		t.Fatal("expected dimension error, got nil")
	}
}

func TestAddSubRoundTrip(t *testing.T) {
	const mod = 1 << 10
	a := New[Elem64](4, 4, mod)
	b := New[Elem64](4, 4, mod)
	for i := range a.data {
		a.data[i] = Elem64(i * 3 % mod)
		b.data[i] = Elem64(i * 7 % mod)
	}

	sum := a.Copy()
	if err := sum.Add(b); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := sum.Sub(b); err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if !sum.Equals(a) {
		t.Fatal("(a+b)-b != a")
	}
}

func TestMulConst(t *testing.T) {
	const mod = 97
	a := New[Elem64](1, 3, mod)
	a.Set(0, 0, 10)
	a.Set(0, 1, 20)
	a.Set(0, 2, 30)
	a.MulConst(5)
	if a.Get(0, 0) != 50%mod || a.Get(0, 1) != 100%mod || a.Get(0, 2) != 150%mod {
		t.Fatalf("MulConst produced unexpected values: %v %v %v", a.Get(0, 0), a.Get(0, 1), a.Get(0, 2))
	}
}

func TestTranspose(t *testing.T) {
	a := New[Elem64](2, 3, 1<<16)
	for i := uint64(0); i < 2; i++ {
		for j := uint64(0); j < 3; j++ {
			a.Set(i, j, i*3+j+1)
		}
	}
	tr := a.Transpose()
	if tr.Rows() != 3 || tr.Cols() != 2 {
		t.Fatalf("transpose shape = %dx%d, want 3x2", tr.Rows(), tr.Cols())
	}
	for i := uint64(0); i < 2; i++ {
		for j := uint64(0); j < 3; j++ {
			if a.Get(i, j) != tr.Get(j, i) {
				t.Errorf("A[%d][%d] != A^T[%d][%d]", i, j, j, i)
			}
		}
	}
}

func TestMulModPowerOfTwoVsLarge(t *testing.T) {
	// Exercise the >2^32 modulus branch of mulMod for correctness against
	// a known product.
	const mod = (uint64(1) << 40) + 7
	got := mulMod(mod-1, mod-1, mod)
	want := uint64(1) // (-1)*(-1) mod m == 1
	if got != want {
		t.Errorf("mulMod((m-1),(m-1),m) = %d, want %d", got, want)
	}
}
