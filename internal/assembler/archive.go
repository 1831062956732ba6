package assembler

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"

	"github.com/evidentry-project/evidentry/pkg/fsutil"
	"github.com/evidentry-project/evidentry/pkg/model"
)

const manifestFileName = "manifest.json"

// writeArchive builds the sealed zip: manifest.json first, then every
// surviving file at its declared in-archive path. Written to a temp file
// and renamed into place so a crash never leaves a partial archive behind.
func writeArchive(dest string, manifest *model.Manifest, items []*candidate) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".evidentry-zip-*")
	if err != nil {
		return 0, fmt.Errorf("create archive temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	zw := zip.NewWriter(tmp)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestSpeed)
	})

	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		zw.Close()
		return 0, fmt.Errorf("marshal manifest: %w", err)
	}
	w, err := zw.Create(manifestFileName)
	if err != nil {
		zw.Close()
		return 0, fmt.Errorf("create manifest entry: %w", err)
	}
	if _, err := w.Write(manifestData); err != nil {
		zw.Close()
		return 0, fmt.Errorf("write manifest entry: %w", err)
	}

	for _, item := range items {
		if err := addFile(zw, item); err != nil {
			zw.Close()
			return 0, err
		}
	}

	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("finalize archive: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("sync archive: %w", err)
	}
	info, err := tmp.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close archive: %w", err)
	}

	if err := fsutil.RenameAndSync(tmpName, dest); err != nil {
		return 0, err
	}
	tmp = nil
	return info.Size(), nil
}

func addFile(zw *zip.Writer, item *candidate) error {
	src, err := os.Open(item.SourcePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", item.ArchivePath, err)
	}
	defer src.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     item.ArchivePath,
		Method:   zip.Deflate,
		Modified: item.UploadedAt,
	})
	if err != nil {
		return fmt.Errorf("create entry %s: %w", item.ArchivePath, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("write entry %s: %w", item.ArchivePath, err)
	}
	return nil
}
