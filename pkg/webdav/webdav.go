// Package webdav exposes a recorded dataset read-only over WebDAV.
package webdav

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/net/webdav"

	"multicam-logger/pkg/utils"
)

type Webdav struct {
	lock   sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	port   int
	dir    string
}

func New(ctx context.Context, port int, dir string) *Webdav {
	return &Webdav{
		ctx:  ctx,
		port: port,
		dir:  dir,
	}
}

func (w *Webdav) Start() {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.cancel != nil {
		return
	}
	newCtx, cancel := context.WithCancel(w.ctx)
	w.cancel = cancel
	Serve(newCtx, w.port, w.dir)
}

func (w *Webdav) Stop() {
	w.lock.Lock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.lock.Unlock()
}

// readOnlyFS rejects every change to the dataset.
type readOnlyFS struct {
	webdav.Dir
}

func (readOnlyFS) Mkdir(context.Context, string, os.FileMode) error {
	return os.ErrPermission
}

func (readOnlyFS) RemoveAll(context.Context, string) error {
	return os.ErrPermission
}

func (readOnlyFS) Rename(context.Context, string, string) error {
	return os.ErrPermission
}

func (fs readOnlyFS) OpenFile(ctx context.Context, name string, flag int, perm os.FileMode) (webdav.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
		return nil, os.ErrPermission
	}
	return fs.Dir.OpenFile(ctx, name, flag, perm)
}

var readMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
	"PROPFIND":         true,
}

// Handler serves dir read-only.
func Handler(dir string) http.Handler {
	logger := utils.GetLogger()

	h := &webdav.Handler{
		FileSystem: readOnlyFS{webdav.Dir(dir)},
		LockSystem: webdav.NewMemLS(),
		Logger: func(r *http.Request, err error) {
			if err != nil {
				logger.Errorf("WEBDAV [%s]: %s, err: %s", r.Method, r.URL, err)
			}
		},
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !readMethods[r.Method] {
			http.Error(w, "dataset is read-only", http.StatusMethodNotAllowed)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func Serve(ctx context.Context, port int, dir string) {
	logger := utils.GetLogger()

	svr := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: Handler(dir),
	}

	go func() {
		logger.Infof("webdav serving %s on :%d", dir, port)
		if err := svr.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("webdav server err: %s", err)
		}
	}()
	go func() {
		<-ctx.Done()
		srcCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := svr.Shutdown(srcCtx); err != nil {
			logger.Errorf("shutdown webdav server err: %s", err)
		}
	}()
}
