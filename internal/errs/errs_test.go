package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	base := errors.New("duplicate entry")
	err := fmt.Errorf("import ttv: %w", New(KindWrite, "insert_trading", "ttv", base))

	assert.True(t, errors.Is(err, ErrWrite))
	assert.False(t, errors.Is(err, ErrRecompute))
	assert.True(t, errors.Is(err, base))
	assert.Equal(t, KindWrite, KindOf(err))
	assert.True(t, errors.Is(err, &Error{Kind: KindWrite, Key: "ttv"}))
	assert.False(t, errors.Is(err, &Error{Kind: KindWrite, Key: "eee"}))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindInternal, KindOf(errors.New("x")))
}

func TestErrorMessage(t *testing.T) {
	e := Newf(KindConfig, "validate", "ttv", "prefix %q already used", "ttv_")
	assert.Equal(t, `validate: config [ttv]: prefix "ttv_" already used`, e.Error())
	assert.Equal(t, "busy", (&Error{Kind: KindBusy}).Error())
}

func TestIsTimeout(t *testing.T) {
	err := New(KindWrite, "import", "ttv", fmt.Errorf("tx: %w", context.DeadlineExceeded))
	assert.True(t, IsTimeout(err))
	assert.False(t, IsTimeout(ErrWrite))
}
