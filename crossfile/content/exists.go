package content

import "os"

// PathExists checks the filesystem directly for whether path exists. It
// performs no caching; callers on a hot path should consult
// [cache.FileCache.PathExists] first and fall back to this only to
// populate that cache.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
