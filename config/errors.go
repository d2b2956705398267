package config

import "github.com/ceyewan/scoregate/xerrors"

var (
	// ErrValidationFailed 必需的配置项缺失
	ErrValidationFailed = xerrors.Mark(xerrors.New("config: validation failed"), xerrors.ErrInvalidInput)
	// ErrRead 配置文件存在但无法解析
	ErrRead = xerrors.New("config: read failed")
)
