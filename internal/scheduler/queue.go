// Package scheduler 进程内调度：定时快照、定时检测，并把检测结果转成单棋手同步任务
package scheduler

import (
	"context"
	"errors"
	"sync"

	"ChessSync/internal/model"
)

// ErrQueueClosed 队列已关闭
var ErrQueueClosed = errors.New("scheduler: queue closed")

// RunRequest 一次单棋手对局同步请求，RunKey 相同视为同一状态
type RunRequest struct {
	RunKey    string            `json:"run_key"`
	Usernames []string          `json:"usernames"`
	Tags      map[string]string `json:"tags"`
}

// RunRequestFromWorkUnit 检测结果转同步请求
func RunRequestFromWorkUnit(u model.WorkUnit) RunRequest {
	return RunRequest{
		RunKey:    u.RunKey,
		Usernames: []string{u.Username},
		Tags:      map[string]string{"username": u.Username},
	}
}

// Queue 按 RunKey 去重的任务队列。
// 排队或执行中的 RunKey 不会重复入队；执行成功后只记住每个棋手最近一次完成的 RunKey，
// 执行失败的 RunKey 会被释放，下次检测可重新入队。
type Queue struct {
	mu      sync.Mutex
	pending map[string]struct{}
	done    map[string]string
	ch      chan RunRequest
	closed  bool
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 64
	}
	return &Queue{
		pending: make(map[string]struct{}),
		done:    make(map[string]string),
		ch:      make(chan RunRequest, size),
	}
}

// Submit 入队；RunKey 排队中、执行中或已成功完成时返回 false。队列满时阻塞直到 ctx 结束。
func (q *Queue) Submit(ctx context.Context, req RunRequest) (bool, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false, ErrQueueClosed
	}
	if q.seenLocked(req) {
		q.mu.Unlock()
		return false, nil
	}
	q.pending[req.RunKey] = struct{}{}
	q.mu.Unlock()

	select {
	case q.ch <- req:
		return true, nil
	case <-ctx.Done():
		// 未成功入队，允许下次重新提交
		q.mu.Lock()
		delete(q.pending, req.RunKey)
		q.mu.Unlock()
		return false, ctx.Err()
	}
}

func (q *Queue) seenLocked(req RunRequest) bool {
	if _, ok := q.pending[req.RunKey]; ok {
		return true
	}
	for _, u := range req.Usernames {
		if q.done[u] == req.RunKey {
			return true
		}
	}
	return false
}

// Complete 标记请求执行结束；succeeded 为 false 时释放 RunKey，允许重试
func (q *Queue) Complete(req RunRequest, succeeded bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, req.RunKey)
	if !succeeded {
		return
	}
	for _, u := range req.Usernames {
		q.done[u] = req.RunKey
	}
}

// Requests 消费端
func (q *Queue) Requests() <-chan RunRequest {
	return q.ch
}

// Len 当前排队数量
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close 关闭队列，之后的 Submit 返回 ErrQueueClosed。只能在没有并发 Submit 时调用。
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
