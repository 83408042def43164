package hashx

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum 计算字节序列的 SHA-256 摘要，返回十六进制小写字符串
// 纯函数，无副作用；相同输入必然产生相同摘要，是同步无变更判定的唯一依据
func Sum(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}
