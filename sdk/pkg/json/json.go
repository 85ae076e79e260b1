// Package json 统一的 JSON 编解码入口，基于 jsoniter 且与标准库行为兼容。
//
// 总线事件的序列化都经过这里。
package json

import (
	jsoniter "github.com/json-iterator/go"
)

// JSON 与标准库兼容的 jsoniter 实例
var JSON = jsoniter.ConfigCompatibleWithStandardLibrary

// RawMessage 与标准库 json.RawMessage 等价
type RawMessage = jsoniter.RawMessage

func Marshal(v interface{}) ([]byte, error) {
	return JSON.Marshal(v)
}

func Unmarshal(data []byte, v interface{}) error {
	return JSON.Unmarshal(data, v)
}

// MarshalToString 序列化为字符串，主要用于日志字段
func MarshalToString(v interface{}) (string, error) {
	return JSON.MarshalToString(v)
}

// Valid 判断 data 是否为合法 JSON
func Valid(data []byte) bool {
	return JSON.Valid(data)
}
