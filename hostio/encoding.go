package hostio

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/reusee/tvm/vm"
)

func jsonParse(_ *IO, _ context.Context, args []vm.Value) (vm.Value, error) {
	text, err := data(args, 0)
	if err != nil {
		return nil, err
	}
	decoder := json.NewDecoder(bytes.NewReader(text))
	decoder.UseNumber()
	var v any
	if err := decoder.Decode(&v); err != nil {
		return nil, wrap(err)
	}
	return FromJSON(v), nil
}

func jsonStringify(_ *IO, _ context.Context, args []vm.Value) (vm.Value, error) {
	bs, err := json.Marshal(ToJSON(args[0]))
	if err != nil {
		return nil, wrap(err)
	}
	return vm.Str(bs), nil
}

// hash returns the hex sha256 digest.
func hash(_ *IO, _ context.Context, args []vm.Value) (vm.Value, error) {
	content, err := data(args, 0)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(content)
	return vm.Str(hex.EncodeToString(sum[:])), nil
}

// FromJSON converts a decoded JSON document. Numbers must be decoded as json.Number.
func FromJSON(v any) vm.Value {
	switch v := v.(type) {
	case nil:
		return vm.Null{}
	case bool:
		return vm.Bool(v)
	case string:
		return vm.Str(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return vm.Int(i)
		}
		f, err := v.Float64()
		if err != nil {
			return vm.Str(v.String())
		}
		return vm.Float(f)
	case float64:
		return vm.Float(v)
	case []any:
		ret := make(vm.List, 0, len(v))
		for _, elem := range v {
			ret = append(ret, FromJSON(elem))
		}
		return ret
	case map[string]any:
		ret := make(vm.Object, len(v))
		for key, elem := range v {
			ret[key] = FromJSON(elem)
		}
		return ret
	}
	return vm.Str(fmt.Sprint(v))
}

// ToJSON converts a value to a json.Marshal-able form.
func ToJSON(v vm.Value) any {
	switch v := v.(type) {
	case nil, vm.Null:
		return nil
	case vm.Int:
		return int64(v)
	case vm.Float:
		return float64(v)
	case vm.Str:
		return string(v)
	case vm.Bool:
		return bool(v)
	case vm.Bytes:
		return []byte(v)
	case vm.PID:
		return uint64(v)
	case vm.List:
		ret := make([]any, 0, len(v))
		for _, elem := range v {
			ret = append(ret, ToJSON(elem))
		}
		return ret
	case vm.Object:
		ret := make(map[string]any, len(v))
		for key, elem := range v {
			ret[key] = ToJSON(elem)
		}
		return ret
	}
	return v.String()
}
