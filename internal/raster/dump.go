package raster

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// DebugDump writes up to max page images under
// <baseDir>/forms/vision-debug/<epoch_ms>_page_<NN>.jpg so operators can see
// exactly what was sent to the model. The timestamp prefix keeps concurrent
// invocations from colliding. Dump failures are logged and swallowed: debug
// output must never fail a conversion.
func DebugDump(baseDir string, images []PageImage, max int) {
	if baseDir == "" || len(images) == 0 || max <= 0 {
		return
	}

	dir := filepath.Join(baseDir, "forms", "vision-debug")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.WithError(err).Warn("failed to create vision debug dump directory")
		return
	}

	stamp := time.Now().UnixMilli()
	for i, img := range images {
		if i >= max {
			break
		}
		name := fmt.Sprintf("%d_page_%02d.jpg", stamp, img.PageNumber)
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, img.Data, 0o640); err != nil {
			log.WithError(err).WithField("path", path).Warn("failed to write vision debug dump")
			continue
		}
		log.WithFields(logrus.Fields{
			"path":  path,
			"bytes": len(img.Data),
		}).Debug("wrote vision debug dump")
	}
}
