package uuid

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	guuid "github.com/google/uuid"
)

var (
	node     *snowflake.Node
	nodeOnce sync.Once
	nodeErr  error
)

// NewTaskID 任务 ID，对外暴露给轮询接口
func NewTaskID() string {
	return guuid.NewString()
}

// IsTaskID reports whether s looks like an id from NewTaskID.
func IsTaskID(s string) bool {
	_, err := guuid.Parse(s)
	return err == nil
}

// InitNode sets the snowflake node id. It only takes effect before the first
// call to NextID.
func InitNode(id int64) error {
	nodeOnce.Do(func() {
		node, nodeErr = snowflake.NewNode(id)
	})
	return nodeErr
}

// NextID 数据库记录主键
func NextID() int64 {
	if err := InitNode(1); err != nil {
		panic(err)
	}
	return node.Generate().Int64()
}
