package cache

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/kava-labs/kava-batch-service/decode"
)

const (
	CodecNameJSON    = "json"
	CodecNameMsgpack = "msgpack"
)

// Codec serializes response records for storage in a Cache
type Codec interface {
	Encode(record *decode.ResponseRecord) ([]byte, error)
	Decode(data []byte) (*decode.ResponseRecord, error)
	Name() string
}

// GetCodec returns the codec registered under name
func GetCodec(name string) (Codec, error) {
	switch name {
	case CodecNameJSON, "":
		return JSONCodec{}, nil
	case CodecNameMsgpack:
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown cache codec %q", name)
	}
}

// JSONCodec encodes records as JSON
type JSONCodec struct{}

func (JSONCodec) Encode(record *decode.ResponseRecord) ([]byte, error) {
	return json.Marshal(record)
}

func (JSONCodec) Decode(data []byte) (*decode.ResponseRecord, error) {
	var record decode.ResponseRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (JSONCodec) Name() string { return CodecNameJSON }

// MsgpackCodec encodes records as MessagePack
type MsgpackCodec struct{}

func (MsgpackCodec) Encode(record *decode.ResponseRecord) ([]byte, error) {
	return msgpack.Marshal(record)
}

func (MsgpackCodec) Decode(data []byte) (*decode.ResponseRecord, error) {
	var record decode.ResponseRecord
	if err := msgpack.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (MsgpackCodec) Name() string { return CodecNameMsgpack }
