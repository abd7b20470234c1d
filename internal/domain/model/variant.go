package model

import (
	"encoding/json"
	"fmt"
)

// 選択したバリエーション（size / color など）
type Variant map[string]any

// 空の署名。nil / {} / 未指定はすべてこれになる。
const EmptyVariantKey = "{}"

// NormalizeVariant は nil を空マップにし、値が nil のキーを落とす。
func NormalizeVariant(v map[string]any) Variant {
	out := Variant{}
	for k, val := range v {
		if val == nil {
			continue
		}
		out[k] = val
	}
	return out
}

// Key はキー順・値の型に依存しない署名を返す。
// 例: {"size":"M","n":1} と {"n":"1","size":"M"} は同じ。
func (v Variant) Key() string {
	if len(v) == 0 {
		return EmptyVariantKey
	}
	flat := make(map[string]string, len(v))
	for k, val := range v {
		if val == nil {
			continue
		}
		flat[k] = fmt.Sprint(val)
	}
	if len(flat) == 0 {
		return EmptyVariantKey
	}
	// encoding/json はマップのキーをソートして出力する
	b, err := json.Marshal(flat)
	if err != nil {
		return EmptyVariantKey
	}
	return string(b)
}

func (v Variant) Equal(o Variant) bool {
	return v.Key() == o.Key()
}

// VariantKeyOf は正規化してから署名を返す
func VariantKeyOf(v map[string]any) string {
	return NormalizeVariant(v).Key()
}
