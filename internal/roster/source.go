package roster

import "ChessSync/internal/model"

// FileSource 每次调用都重新读取名单文件，名单变更无需重启
type FileSource struct {
	Path string
}

func (s FileSource) Players() ([]model.TrackedEntity, error) {
	return Load(s.Path)
}

// Static 固定名单（测试与一次性命令使用）
type Static []model.TrackedEntity

func (s Static) Players() ([]model.TrackedEntity, error) {
	return []model.TrackedEntity(s), nil
}
