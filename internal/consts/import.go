package consts

// ImportMode 导入模式
type ImportMode string

const (
	ModeAppend    ImportMode = "append"    // 只插入, 重复行计为错误
	ModeOverwrite ImportMode = "overwrite" // 先删除当日全部数据再插入
)

func (m ImportMode) Valid() bool { return m == ModeAppend || m == ModeOverwrite }

// ImportStatus 导入记录状态
type ImportStatus string

const (
	ImportPending ImportStatus = "pending"
	ImportSuccess ImportStatus = "success"
	ImportFailed  ImportStatus = "failed"
)

// HealthStatus 文件类型表结构健康度
type HealthStatus string

const (
	HealthOK       HealthStatus = "ok"
	HealthDegraded HealthStatus = "degraded"
	HealthBroken   HealthStatus = "broken"
)

// ConceptSource 概念成员关系来源
const (
	ConceptSourceDB   = "db"
	ConceptSourceHTTP = "http"
)

// DateLayout 交易日期统一存储格式
const DateLayout = "2006-01-02"
