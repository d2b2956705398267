package xerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, "ctx"))
	assert.NoError(t, Wrapf(nil, "game %s", "1"))

	base := errors.New("base")
	wrapped := Wrapf(base, "game %s", "401")
	assert.Equal(t, "game 401: base", wrapped.Error())
	assert.ErrorIs(t, wrapped, base)
}

func TestMark(t *testing.T) {
	errAcquire := Mark(errors.New("ratelimit: acquire timeout"), ErrTimeout)

	assert.Equal(t, "ratelimit: acquire timeout", errAcquire.Error())
	assert.ErrorIs(t, errAcquire, ErrTimeout)
	assert.ErrorIs(t, Wrap(errAcquire, "provider espn"), ErrTimeout)
	assert.ErrorIs(t, Wrap(errAcquire, "provider espn"), errAcquire)
	assert.NoError(t, Mark(nil, ErrTimeout))
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"显式错误码", WithCode(errors.New("x"), CodeUpstream), CodeUpstream},
		{"未找到", Wrap(ErrNotFound, "game 1"), CodeNotFound},
		{"参数非法", Wrap(ErrInvalidInput, "week"), CodeInvalidInput},
		{"不可用", Mark(errors.New("open"), ErrUnavailable), CodeUnavailable},
		{"超时", ErrTimeout, CodeTimeout},
		{"其他", errors.New("boom"), CodeInternal},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetCode(tt.err))
		})
	}
}

func TestCodedError(t *testing.T) {
	err := WithCode(ErrNotFound, CodeNotFound)
	assert.Equal(t, "[NOT_FOUND] not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, WithCode(nil, CodeInternal))
}

func TestCombine(t *testing.T) {
	assert.NoError(t, Combine(nil, nil))

	e1 := errors.New("e1")
	assert.Equal(t, e1, Combine(nil, e1))

	e2 := errors.New("e2")
	combined := Combine(e1, nil, e2)
	require.Error(t, combined)
	assert.Equal(t, "e1 (and 1 more errors)", combined.Error())
	assert.ErrorIs(t, combined, e2)
}

func TestMust(t *testing.T) {
	assert.Equal(t, 3, Must(3, nil))
	assert.Panics(t, func() { Must(0, errors.New("bad")) })
}
