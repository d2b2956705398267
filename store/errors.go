package store

import "github.com/ceyewan/scoregate/xerrors"

var (
	ErrConfigNil         = xerrors.New("store: config is nil")
	ErrConnectorNil      = xerrors.New("store: connector is nil")
	ErrNotConnected      = xerrors.Mark(xerrors.New("store: connector not connected"), xerrors.ErrUnavailable)
	ErrUnsupportedDriver = xerrors.Mark(xerrors.New("store: unsupported driver"), xerrors.ErrInvalidInput)
)
