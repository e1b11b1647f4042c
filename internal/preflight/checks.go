package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"auctionload/internal/source"
	"auctionload/internal/warehouse"
)

const remoteCheckTimeout = 30 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCredentials verifies a service account file is readable. An empty path
// means application default credentials and passes.
func CheckCredentials(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Passed: true, Detail: "application default credentials"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckFolder lists the folder and reports how many exports are waiting.
func CheckFolder(ctx context.Context, folder source.Folder, skipMarker string) Result {
	const name = "Source folder"
	checkCtx, cancel := context.WithTimeout(ctx, remoteCheckTimeout)
	defer cancel()

	files, err := folder.List(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", folder.Describe(), err)}
	}
	pending := 0
	for _, f := range files {
		if skipMarker == "" || !strings.Contains(f.Name, skipMarker) {
			pending++
		}
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%s (%d files, %d pending)", folder.Describe(), len(files), pending),
	}
}

// CheckWarehouse verifies the warehouse answers.
func CheckWarehouse(ctx context.Context, wh warehouse.Warehouse) Result {
	const name = "Warehouse"
	checkCtx, cancel := context.WithTimeout(ctx, remoteCheckTimeout)
	defer cancel()

	if err := wh.Check(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", wh.Describe(), err)}
	}
	return Result{Name: name, Passed: true, Detail: wh.Describe() + " (reachable)"}
}
