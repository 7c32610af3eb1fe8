package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// GenerateHMAC 生成HMAC签名（十六进制字符串）
// 审计日志用它给执行过的脚本打指纹
func GenerateHMAC(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC 校验HMAC签名
func VerifyHMAC(message, secret, sign string) bool {
	expectedSign := GenerateHMAC(message, secret)
	return hmac.Equal([]byte(expectedSign), []byte(sign))
}
