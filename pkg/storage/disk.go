// Package storage is the file store behind product images. It ships two
// drivers, selected by STORAGE_DISK: "local" (the default) keeps files on
// the filesystem, "s3" talks to any S3-compatible bucket.
//
// Boot it once in the server, then use the package-level helpers for the
// default disk or Use for a specific one:
//
//	storage.Connect()
//	storage.Put("products/42.jpg", data)
//	url := storage.URL("products/42.jpg")
//	storage.Use("s3").Put("backups/dump.sql.gz", data)
package storage

import (
	"fmt"
	"io"
	"sync"

	"github.com/adityaraj/bazario/config"
	"github.com/adityaraj/bazario/pkg/logger"
)

// Disk is what a storage driver implements.
type Disk interface {
	// Put writes content at path, creating parent directories on the way.
	Put(path string, content []byte) error

	// PutStream copies r to path.
	PutStream(path string, r io.Reader) error

	// Get reads the whole file at path.
	Get(path string) ([]byte, error)

	// GetStream opens the file for reading; the caller closes it.
	GetStream(path string) (io.ReadCloser, error)

	// Exists reports whether path holds a file.
	Exists(path string) bool

	// Size is the file's length in bytes.
	Size(path string) (int64, error)

	// URL is the public address of path.
	URL(path string) string

	// Delete removes the file; deleting a missing file is not an error.
	Delete(path string) error
}

var (
	managerMu   sync.RWMutex
	disks       = map[string]Disk{}
	defaultDisk string
)

// Connect boots the storage manager. Call once at application startup.
func Connect() {
	defaultDisk = config.StorageDefault()

	// Local is always available.
	disks["local"] = newLocalDisk()

	// S3 joins only when a bucket is configured.
	if config.StorageS3Bucket() != "" {
		d, err := newS3Disk()
		if err != nil {
			logger.Warn("storage: s3 disk disabled", "error", err)
		} else {
			disks["s3"] = d
		}
	}

	if _, ok := disks[defaultDisk]; !ok {
		logger.Warn("storage: default disk not configured, falling back to local", "disk", defaultDisk)
		defaultDisk = "local"
	}
}

// Use returns the named disk ("local" or "s3").
func Use(name string) Disk {
	managerMu.RLock()
	d, ok := disks[name]
	managerMu.RUnlock()
	if !ok {
		panic(fmt.Sprintf("storage: disk %q is not configured", name))
	}
	return d
}

// RegisterDisk plugs in a custom Disk implementation at boot time.
func RegisterDisk(name string, d Disk) {
	managerMu.Lock()
	disks[name] = d
	managerMu.Unlock()
}

func active() Disk { return Use(defaultDisk) }

// Put writes content to path on the default disk.
func Put(path string, content []byte) error { return active().Put(path, content) }

// PutStream copies r to path on the default disk.
func PutStream(path string, r io.Reader) error { return active().PutStream(path, r) }

// Get reads path from the default disk.
func Get(path string) ([]byte, error) { return active().Get(path) }

// GetStream opens path on the default disk.
func GetStream(path string) (io.ReadCloser, error) { return active().GetStream(path) }

// Exists reports whether path exists on the default disk.
func Exists(path string) bool { return active().Exists(path) }

// Delete removes path from the default disk.
func Delete(path string) error { return active().Delete(path) }

// URL is the public address of path on the default disk.
func URL(path string) string { return active().URL(path) }

// Size is the byte length of path on the default disk.
func Size(path string) (int64, error) { return active().Size(path) }
