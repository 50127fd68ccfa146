package watch

import (
	"context"
	"log"
	"time"

	"github.com/fsnotify/fsnotify"

	"billing_monitor/internal/config"
	"billing_monitor/internal/drive"
	"billing_monitor/internal/ingest"
)

// Watcher monitors the uploads directory for new spreadsheets and
// triggers a sync when one lands. Sync reads the whole directory, so a
// burst of files collapses into the same scan.
type Watcher struct {
	cfg     config.Config
	service *ingest.Service
}

func New(cfg config.Config, svc *ingest.Service) *Watcher {
	return &Watcher{cfg: cfg, service: svc}
}

func (w *Watcher) Start(ctx context.Context) error {
	if !w.cfg.EnableWatcher {
		log.Println("watcher disabled")
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-watcher.Events:
				if evt.Op&(fsnotify.Create|fsnotify.Rename) != 0 && drive.IsSpreadsheet(evt.Name) {
					w.runSync(ctx, evt.Name)
				}
			case err := <-watcher.Errors:
				log.Printf("watcher error: %v", err)
			}
		}
	}()
	log.Printf("watcher: monitoring %s", w.cfg.UploadsDir)
	return watcher.Add(w.cfg.UploadsDir)
}

func (w *Watcher) runSync(ctx context.Context, trigger string) {
	// Let the writer finish; spreadsheet writes are not atomic.
	time.Sleep(500 * time.Millisecond)
	syncCtx, cancel := context.WithTimeout(ctx, time.Duration(w.cfg.SyncTimeoutSec)*time.Second)
	defer cancel()
	summary, err := w.service.Sync(syncCtx, "")
	if err != nil {
		log.Printf("watcher: sync after %s failed: %v", trigger, err)
		return
	}
	log.Printf("watcher: sync after %s: %d new, %d duplicates", trigger, summary.NewRecordsAdded, summary.DuplicatesSkipped)
}
