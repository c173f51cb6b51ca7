// Package corefmt 提供快照/代幣（token）在文字通道上的編解碼工具。
//
// judge 引擎的輸入快照會被編成 base64url 代幣，讓呼叫端的結果存檔可以
// 原樣保存並回放（round-trip）一次分析，而核心不需要擁有任何識別碼格式。
package corefmt

import (
	"encoding/base64"
	"encoding/hex"

	"github.com/zintix-labs/judgelab/errs"
)

func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func DecodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(err, "decode base64 failed")
	}
	return b, err
}

func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeBase64URL(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(err, "decode base64url failed")
	}
	return b, err
}

// EncodeTextBytes is a best-effort helper for logs/debugging where you want stable, copyable text.
// Hex is larger than Base64 but is very human-friendly.
func EncodeTextBytes(b []byte) string {
	return hex.EncodeToString(b)
}

// DecodeTextBytes decodes text produced by EncodeTextBytes.
func DecodeTextBytes(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(err, "decode hex failed")
	}
	return b, err
}
