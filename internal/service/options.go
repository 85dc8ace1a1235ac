package service

import (
	"time"

	"ChessSync/internal/config"
)

type options struct {
	concurrency int
	now         func() time.Time
}

// Option 服务可选参数
type Option func(*options)

// WithConcurrency 同一轮内并发处理的棋手数
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithClock 替换时钟，测试用
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		concurrency: config.DefaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
