package databases

import (
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"xorm.io/xorm"
)

// Config 数据库连接配置
type Config struct {
	Driver  string `json:"driver" validate:"omitempty,oneof=mysql postgres"`
	Dsn     string `json:"dsn" validate:"required_with=Driver"`
	ShowSQL bool   `json:"show_sql"`
	MaxOpen int    `json:"max_open"`
}

// DBInterface xorm 引擎上我们用到的部分
type DBInterface interface {
	InsertOne(bean interface{}) (int64, error)
	Sync2(beans ...interface{}) error
	NewSession() *xorm.Session
	Close() error
}

type Dao interface {
	Count(bean interface{}) (int64, error)
	InsertOne(entry interface{}) (int64, error)
	FindById(id interface{}, bean interface{}) (bool, error)
	FindMany(rowsSlicePtr interface{}, orderBy string, limit int, condiBean ...interface{}) error
	Sync(beans ...interface{}) error
	Close() error
}

type OrmBaseDao struct {
	conn DBInterface
}

// NewEngine opens an xorm engine for cfg.
func NewEngine(cfg Config) (*xorm.Engine, error) {
	if cfg.Driver == "" {
		return nil, errors.New("database driver is not configured")
	}
	engine, err := xorm.NewEngine(cfg.Driver, cfg.Dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	engine.ShowSQL(cfg.ShowSQL)
	if cfg.MaxOpen > 0 {
		engine.SetMaxOpenConns(cfg.MaxOpen)
	}
	if err := engine.Ping(); err != nil {
		engine.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	return engine, nil
}

func NewBaseDao(conn DBInterface) Dao {
	return &OrmBaseDao{conn: conn}
}

func (m *OrmBaseDao) InsertOne(entry interface{}) (int64, error) {
	return m.conn.InsertOne(entry)
}

func (m *OrmBaseDao) FindById(id interface{}, bean interface{}) (bool, error) {
	session := m.conn.NewSession()
	defer session.Close()
	return session.ID(id).Get(bean)
}

func (m *OrmBaseDao) Count(bean interface{}) (int64, error) {
	session := m.conn.NewSession()
	defer session.Close()
	return session.Count(bean)
}

// FindMany 按 orderBy 倒序取最多 limit 条，limit<=0 不限制
func (m *OrmBaseDao) FindMany(rowsSlicePtr interface{}, orderBy string, limit int, condiBean ...interface{}) error {
	session := m.conn.NewSession()
	defer session.Close()
	if orderBy != "" {
		session = session.Desc(orderBy)
	}
	if limit > 0 {
		session = session.Limit(limit)
	}
	return session.Find(rowsSlicePtr, condiBean...)
}

func (m *OrmBaseDao) Sync(beans ...interface{}) error {
	return m.conn.Sync2(beans...)
}

func (m *OrmBaseDao) Close() error {
	return m.conn.Close()
}
