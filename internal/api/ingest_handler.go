package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"ChessSync/internal/model"
	"ChessSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// GamesRunner 对局增量同步
type GamesRunner interface {
	Run(ctx context.Context, usernames []string) (model.IngestionSummary, error)
}

// SnapshotPoller 快照轮询
type SnapshotPoller interface {
	Poll(ctx context.Context, method string) (model.SnapshotSummary, error)
	PollAll(ctx context.Context, methods []string) ([]model.SnapshotSummary, error)
}

// Detector 新对局检测
type Detector interface {
	Detect(ctx context.Context) ([]model.WorkUnit, error)
}

// Enqueuer 把检测结果交给进程内调度器
type Enqueuer interface {
	Enqueue(ctx context.Context, units []model.WorkUnit) (int, error)
}

// IngestHandler 外部调度方触发同步的接口
type IngestHandler struct {
	games     GamesRunner
	snapshots SnapshotPoller
	detector  Detector
	enqueuer  Enqueuer
	methods   []string
	logger    *logrus.Logger
}

// NewIngestHandler enqueuer 可为 nil，此时 /detect 只返回检测结果
func NewIngestHandler(games GamesRunner, snapshots SnapshotPoller, detector Detector, enqueuer Enqueuer, methods []string, logger *logrus.Logger) *IngestHandler {
	return &IngestHandler{
		games:     games,
		snapshots: snapshots,
		detector:  detector,
		enqueuer:  enqueuer,
		methods:   methods,
		logger:    logger,
	}
}

type ingestGamesRequest struct {
	Usernames []string `json:"usernames"`
}

// IngestGames 对局增量同步
// POST /ingest/games  body 可选：{"usernames": ["hikaru"]}
func (h *IngestHandler) IngestGames(c *gin.Context) {
	var req ingestGamesRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.games.Run(c.Request.Context(), req.Usernames)
	if err != nil {
		h.logger.WithError(err).Error("IngestGames failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "summary": summary})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// PollSnapshots 执行配置中启用的全部快照方法
// POST /ingest/snapshots
func (h *IngestHandler) PollSnapshots(c *gin.Context) {
	summaries, err := h.snapshots.PollAll(c.Request.Context(), h.methods)
	if err != nil {
		h.logger.WithError(err).Error("PollSnapshots failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "summaries": summaries})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summaries": summaries})
}

// PollSnapshot 执行单个快照方法，:method 可为 profile / get_player / player 等
// POST /ingest/snapshots/:method
func (h *IngestHandler) PollSnapshot(c *gin.Context) {
	method := c.Param("method")
	if _, ok := service.LookupMethod(method); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown snapshot method: " + method})
		return
	}

	summary, err := h.snapshots.Poll(c.Request.Context(), method)
	if err != nil {
		h.logger.WithError(err).WithField("method", method).Error("PollSnapshot failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "summary": summary})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Detect 检测新对局；?enqueue=true 时同时提交给进程内调度器
// POST /detect
func (h *IngestHandler) Detect(c *gin.Context) {
	enqueue, _ := strconv.ParseBool(c.DefaultQuery("enqueue", "false"))

	units, err := h.detector.Detect(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Detect failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(units) == 0 {
		c.JSON(http.StatusOK, gin.H{"skip_reason": service.NoNewGamesReason})
		return
	}

	resp := gin.H{"work_units": units}
	if enqueue {
		if h.enqueuer == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "scheduler is not running", "work_units": units})
			return
		}
		n, err := h.enqueuer.Enqueue(c.Request.Context(), units)
		if err != nil {
			h.logger.WithError(err).Error("Enqueue failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "work_units": units})
			return
		}
		resp["enqueued"] = n
	}
	c.JSON(http.StatusOK, resp)
}

// Health 存活检查
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
