// Package serializer 为 redis 缓存驱动提供值的编解码。
package serializer

import (
	"bytes"
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ceyewan/scoregate/xerrors"
)

// ErrUnsupportedSerializer 不支持的序列化器类型
var ErrUnsupportedSerializer = xerrors.Mark(xerrors.New("serializer: unsupported type"), xerrors.ErrInvalidInput)

// Serializer 定义序列化接口
type Serializer interface {
	Marshal(value any) ([]byte, error)
	Unmarshal(data []byte, dest any) error
	Name() string
}

// JSONSerializer JSON 序列化器
type JSONSerializer struct{}

func (JSONSerializer) Marshal(value any) ([]byte, error) {
	return json.Marshal(value)
}

func (JSONSerializer) Unmarshal(data []byte, dest any) error {
	return json.Unmarshal(data, dest)
}

func (JSONSerializer) Name() string { return "json" }

// MessagePackSerializer MessagePack 序列化器，按 json tag 编码字段
type MessagePackSerializer struct{}

func (MessagePackSerializer) Marshal(value any) ([]byte, error) {
	enc := msgpack.GetEncoder()
	defer msgpack.PutEncoder(enc)

	var buf bytes.Buffer
	enc.Reset(&buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MessagePackSerializer) Unmarshal(data []byte, dest any) error {
	dec := msgpack.GetDecoder()
	defer msgpack.PutDecoder(dec)

	dec.Reset(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(dest)
}

func (MessagePackSerializer) Name() string { return "msgpack" }

// New 创建序列化器
//
//   - "json": 默认，便于在 redis-cli 中直接查看
//   - "msgpack": 二进制，体积更小
func New(serializerType string) (Serializer, error) {
	switch serializerType {
	case "json", "":
		return JSONSerializer{}, nil
	case "msgpack":
		return MessagePackSerializer{}, nil
	default:
		return nil, xerrors.Wrapf(ErrUnsupportedSerializer, "%q", serializerType)
	}
}
