package gf256

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMulInvIdentity(t *testing.T) {
	for a := 1; a < 256; a++ {
		inv := Inv(byte(a))
		assert.Equal(t, byte(1), Mul(byte(a), inv), "a=%d", a)
	}
}

func TestAddIsXor(t *testing.T) {
	assert.Equal(t, byte(0x0F), Add(0xAA, 0xA5))
}

func TestGeneratorMatrixShape(t *testing.T) {
	assert.Len(t, GeneratorMatrix, 255)
	for _, row := range GeneratorMatrix {
		assert.Len(t, row, 32)
	}
}

func TestInvertRecoversIdentity(t *testing.T) {
	// Pick 3 distinct rows (pIDs 7,12,200 0-based -> 6,11,199) and verify
	// that G^-1 * G restricted to those rows recovers the identity, i.e.
	// decoding an all-ones systematic payload reproduces itself.
	idx := []int{6, 11, 199}
	g := SubmatrixCols(Submatrix(GeneratorMatrix, idx), 3)
	inv, err := Invert(g)
	assert.NoError(t, err)

	prod := MatMul(inv, g)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := byte(0)
			if i == j {
				want = 1
			}
			assert.Equal(t, want, prod[i][j], "i=%d j=%d", i, j)
		}
	}
}

func TestInvertSingularFails(t *testing.T) {
	m := Matrix{{1, 2}, {2, 4}} // row2 = 2*row1 in GF(256) since Mul(2,1)=2, Mul(2,2)=4
	_, err := Invert(m)
	assert.ErrorIs(t, err, ErrSingular)
}
