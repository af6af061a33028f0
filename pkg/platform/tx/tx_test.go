package tx

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEmptyContext(t *testing.T) {
	got, ok := From(context.Background())
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestWithTxNilIsNoOp(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithTx(ctx, nil))
}

func TestWithTxRoundTrip(t *testing.T) {
	want := &sql.Tx{}
	ctx := WithTx(context.Background(), want)

	got, ok := From(ctx)
	assert.True(t, ok)
	assert.Same(t, want, got)
}
