package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := map[string]Kind{
		"INT8":             KindInteger,
		"integer":          KindInteger,
		"Nullable(UInt32)": KindInteger,
		"UNSIGNED BIGINT":  KindInteger,
		"NEWDECIMAL":       KindDecimal,
		"DECIMAL(10,2)":    KindDecimal,
		"float8":           KindDecimal,
		"VARCHAR":          KindOther,
		"":                 KindOther,
	}
	for tag, want := range tests {
		assert.Equal(t, want, KindOf(tag), tag)
	}
}

func TestCoerce(t *testing.T) {
	assert.Equal(t, int64(42), Coerce("INT8", []byte("42")))
	assert.Equal(t, int64(7), Coerce("Nullable(UInt32)", "7"))
	assert.Equal(t, int64(3), Coerce("INTEGER", int32(3)))
	assert.Equal(t, 12.5, Coerce("NUMERIC", []byte("12.50")))
	assert.Equal(t, 1.5, Coerce("DECIMAL(10,2)", "1.5"))
	assert.Equal(t, float64(2), Coerce("REAL", int64(2)))
	assert.Equal(t, "x", Coerce("TEXT", []byte("x")))
	assert.Nil(t, Coerce("VARCHAR", `\N`))
	assert.Nil(t, Coerce("INT", []byte(`\N`)))
	assert.Nil(t, Coerce("INT", nil))
	assert.Equal(t, "n/a", Coerce("INT", "n/a"))
}
