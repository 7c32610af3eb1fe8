package redis

import "fmt"

// SingleFlightKey 单飞锁的键
func SingleFlightKey(name string) string {
	return fmt.Sprintf("lock:%s", name)
}

// BufferKey 文本缓冲区的键
func BufferKey(name string) string {
	return fmt.Sprintf("buffer:%s", name)
}
