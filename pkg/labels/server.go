package labels

import (
	"errors"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/vincent-vinf/go-jsend"

	"multicam-logger/pkg/ov"
	"multicam-logger/pkg/storage"
	"multicam-logger/pkg/utils"
	"multicam-logger/pkg/utils/ps"
)

type handler struct {
	store *Store
}

// NewRouter serves the label API used by the experiment UI.
func NewRouter(store *Store) *gin.Engine {
	h := &handler{store: store}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(utils.Cors())
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, jsend.SimpleErr("page not found"))
	})

	apiRouter := r.Group("/api")
	apiRouter.GET("/health", h.health)

	labelRouter := apiRouter.Group("/labels")
	labelRouter.POST("", h.createLabel)
	labelRouter.GET("/:pid", h.listLabels)

	return r
}

func (h *handler) createLabel(c *gin.Context) {
	var req ov.Label
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, jsend.SimpleErr(err.Error()))
		return
	}
	entry, err := h.store.Append(req, time.Now())
	if isClientErr(err) {
		c.JSON(http.StatusBadRequest, jsend.SimpleErr(err.Error()))
		return
	}
	if err != nil {
		internalErr(c, err)
		return
	}

	c.JSON(http.StatusOK, jsend.Success(entry))
}

func (h *handler) listLabels(c *gin.Context) {
	entries, err := h.store.List(c.Param("pid"))
	if isClientErr(err) {
		c.JSON(http.StatusBadRequest, jsend.SimpleErr(err.Error()))
		return
	}
	if err != nil {
		internalErr(c, err)
		return
	}

	c.JSON(http.StatusOK, jsend.Success(entries))
}

func (h *handler) health(c *gin.Context) {
	res := ov.Health{Status: "ok", Time: time.Now()}
	if cpu, err := ps.CPUStatus(); err == nil {
		res.CPU = cpu.Percent
	}
	if mem, err := ps.MemoryStatus(); err == nil {
		res.MemoryPct = mem.UsedPercent
	}
	if disk, err := ps.DiskUsage(h.store.BaseDir()); err == nil {
		res.DiskFree = humanize.Bytes(disk.Free)
	}

	c.JSON(http.StatusOK, jsend.Success(res))
}

func isClientErr(err error) bool {
	return errors.Is(err, ErrBadTimestamp) || errors.Is(err, storage.ErrBadParticipant)
}

func internalErr(c *gin.Context, err error) {
	logger.Error(err)
	c.JSON(http.StatusInternalServerError, jsend.SimpleErr("internal error"))
}
