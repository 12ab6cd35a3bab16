// Package backup snapshots a save together with every canvas resource it
// references, and restores such snapshots.
package backup

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rainbowphysics/tower"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// IndexFile is written at the top of every backup directory.
	IndexFile = "index.json"

	// UserAgent identifies downloads and reachability checks.
	UserAgent = "PyTower"

	defaultConcurrency = 8
	headTimeout        = 2 * time.Second
	maxExtensionLen    = 4
)

var (
	ErrNoIndex        = errors.New("backup has no index.json")
	ErrBadCacheline   = errors.New("malformed canvas cache entry")
	ErrNoInstallCache = errors.New("canvas cache not found, check install_path")
)

// Store loads and writes saves. *converter.Converter implements it.
type Store interface {
	Load(ctx context.Context, path string) (*tower.Suitebro, error)
	Save(ctx context.Context, save *tower.Suitebro, path string) error
}

// Index describes one backup directory.
type Index struct {
	OriginalPath string            `json:"original_path"`
	Filename     string            `json:"filename"`
	Version      string            `json:"version"`
	Resources    map[string]string `json:"resources"` // url -> local file
}

// Backer makes and restores backups.
type Backer struct {
	Client      *http.Client
	InstallPath string // game install holding Tower/Cache/Canvas
	Concurrency int
	Version     string
	Logger      *zap.Logger
	Now         func() time.Time
}

func (b *Backer) client() *http.Client {
	if b.Client != nil {
		return b.Client
	}
	return http.DefaultClient
}

func (b *Backer) logger() *zap.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return zap.NewNop()
}

func (b *Backer) limit() int {
	if b.Concurrency > 0 {
		return b.Concurrency
	}
	return defaultConcurrency
}

//------------------------------------------------------------------------------
// RESOURCE SCAN
//------------------------------------------------------------------------------

// ResourceURLs collects every URL and CanvasURL string property in both
// records of every object, trimmed, deduplicated and sorted.
func ResourceURLs(save *tower.Suitebro) []string {
	seen := make(map[string]struct{})
	for _, obj := range save.Objects() {
		for _, rec := range [][]byte{obj.Item(), obj.Properties()} {
			if rec != nil {
				collectURLs(gjson.ParseBytes(rec), seen)
			}
		}
	}
	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

func collectURLs(r gjson.Result, seen map[string]struct{}) {
	if !r.IsObject() && !r.IsArray() {
		return
	}
	r.ForEach(func(key, value gjson.Result) bool {
		if k := key.String(); k == "URL" || k == "CanvasURL" {
			if u := strings.TrimSpace(value.Get("Str.value").String()); u != "" {
				seen[u] = struct{}{}
			}
		}
		collectURLs(value, seen)
		return true
	})
}

//------------------------------------------------------------------------------
// CANVAS CACHE
//------------------------------------------------------------------------------

func urlHash(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// LoadCanvasCache maps md5(url) to cache entry files under the game's
// Tower/Cache/Canvas directory.
func LoadCanvasCache(installPath string) (map[string]string, error) {
	root := filepath.Join(installPath, "Tower", "Cache", "Canvas")
	subdirs, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoInstallCache, err)
	}
	cache := make(map[string]string)
	for _, sub := range subdirs {
		if !sub.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(root, sub.Name()))
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || len(name) <= 6 {
				continue
			}
			cache[name[:len(name)-6]] = filepath.Join(root, sub.Name(), name)
		}
	}
	return cache, nil
}

// ReadCacheline returns the payload of a cache entry: little-endian data
// size, little-endian url size, the url, then the data.
func ReadCacheline(path string) ([]byte, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(buf) < 8 {
		return nil, ErrBadCacheline
	}
	dataSize := int(binary.LittleEndian.Uint32(buf[0:4]))
	urlSize := int(binary.LittleEndian.Uint32(buf[4:8]))
	start := 8 + urlSize
	if start+dataSize > len(buf) {
		return nil, ErrBadCacheline
	}
	return buf[start : start+dataSize], nil
}

//------------------------------------------------------------------------------
// DOWNLOAD
//------------------------------------------------------------------------------

// ResourceFilename names a downloaded resource by the first ten hex digits
// of its SHA-1 plus the url's extension. ok is false when the url has no
// usable extension.
func ResourceFilename(url string, data []byte) (name string, ok bool) {
	ext := url[strings.LastIndex(url, ".")+1:]
	if i := strings.Index(ext, "?"); i >= 0 {
		ext = ext[:i]
	}
	if ext == "" || len(ext) > maxExtensionLen || strings.Contains(ext, "/") {
		return "", false
	}
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])[:10] + "." + ext, true
}

func (b *Backer) fetch(ctx context.Context, url string, cache map[string]string) ([]byte, error) {
	if entry, ok := cache[urlHash(url)]; ok {
		data, err := ReadCacheline(entry)
		if err == nil {
			b.logger().Info("retrieved from canvas cache", zap.String("url", url))
			return data, nil
		}
		b.logger().Warn("unreadable cache entry", zap.String("path", entry), zap.Error(err))
	}

	target := url
	if !strings.HasPrefix(target, "https://") && !strings.HasPrefix(target, "http://") {
		target = "http://" + target
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	resp, err := b.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Download fetches urls into dir, trying the canvas cache first. It returns
// url -> file name for every resource that was saved. Individual failures
// are logged and skipped.
func (b *Backer) Download(ctx context.Context, urls []string, dir string) (map[string]string, error) {
	cache, err := LoadCanvasCache(b.InstallPath)
	if err != nil {
		b.logger().Error("failed to locate canvas cache", zap.Error(err))
		cache = map[string]string{}
	} else {
		b.logger().Info("located cached resources", zap.Int("count", len(cache)))
	}

	var (
		mu        sync.Mutex
		resources = make(map[string]string, len(urls))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit())
	for _, url := range urls {
		url := url
		g.Go(func() error {
			data, err := b.fetch(gctx, url, cache)
			if err != nil {
				b.logger().Error("failed to download resource", zap.String("url", url), zap.Error(err))
				return nil
			}
			name, ok := ResourceFilename(url, data)
			if !ok {
				b.logger().Warn("resource has no file extension", zap.String("url", url))
				return nil
			}
			if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
				return err
			}
			mu.Lock()
			resources[url] = name
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resources, ctx.Err()
}

//------------------------------------------------------------------------------
// MAKE / RESTORE
//------------------------------------------------------------------------------

// DirName names a backup of save taken at t. Saves still called CondoData
// are named after their directory.
func DirName(save *tower.Suitebro, t time.Time) string {
	name := save.Filename
	if name == "CondoData" || name == "" {
		name = filepath.Base(save.Directory)
	}
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "-")
	return name + "_" + t.Format("01-02-2006_150405")
}

// Make writes a new backup of save under root and returns its directory.
func (b *Backer) Make(ctx context.Context, save *tower.Suitebro, store Store, root string) (string, error) {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	dir := filepath.Join(root, DirName(save, now()))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	urls := ResourceURLs(save)
	b.logger().Info("backing up resources", zap.Int("urls", len(urls)))
	resources, err := b.Download(ctx, urls, dir)
	if err != nil {
		return "", err
	}

	filename := save.Filename
	if filename == "" {
		filename = "CondoData"
	}
	if err := store.Save(ctx, save, filepath.Join(dir, filename)); err != nil {
		return "", err
	}

	idx := Index{
		OriginalPath: filepath.Join(save.Directory, save.Filename),
		Filename:     filename,
		Version:      b.Version,
		Resources:    resources,
	}
	if err := WriteIndex(filepath.Join(dir, IndexFile), &idx); err != nil {
		return "", err
	}

	b.logger().Info("created backup",
		zap.String("path", dir),
		zap.Int("resources", len(resources)),
		zap.String("outcome", "success"))
	return dir, nil
}

// WriteIndex writes idx as indented JSON.
func WriteIndex(path string, idx *Index) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	return os.WriteFile(path, pretty.Pretty(data), 0644)
}

// ReadIndex reads a backup index. Legacy indexes that are a bare
// url -> file map are accepted with version 0.1.0.
func ReadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoIndex, filepath.Dir(path))
		}
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid backup index %s", path)
	}
	doc := gjson.ParseBytes(data)
	idx := &Index{Resources: map[string]string{}}
	resources := doc.Get("resources")
	if doc.Get("original_path").Exists() {
		idx.OriginalPath = doc.Get("original_path").String()
		idx.Filename = doc.Get("filename").String()
		idx.Version = doc.Get("version").String()
		if idx.Version == "" {
			idx.Version = doc.Get("pytower_version").String()
		}
	} else {
		resources = doc
		idx.Version = "0.1.0"
	}
	resources.ForEach(func(k, v gjson.Result) bool {
		idx.Resources[k.String()] = v.String()
		return true
	})
	return idx, nil
}

// CheckLinks reports which urls answer a HEAD request with 200.
func (b *Backer) CheckLinks(ctx context.Context, urls []string) map[string]bool {
	var (
		mu     sync.Mutex
		online = make(map[string]bool, len(urls))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit())
	for _, url := range urls {
		url := url
		g.Go(func() error {
			ok := b.available(gctx, url)
			mu.Lock()
			online[url] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return online
}

func (b *Backer) available(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, headTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		b.logger().Debug("bad resource url", zap.String("url", url), zap.Error(err))
		return false
	}
	req.Header.Set("User-Agent", UserAgent)
	resp, err := b.client().Do(req)
	if err != nil {
		b.logger().Debug("resource unreachable", zap.String("url", url), zap.Error(err))
		return false
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b.logger().Debug("resource returned status", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return false
	}
	return true
}

// Report summarises a restore.
type Report struct {
	Total int
	Dead  []string // urls no longer reachable, sorted
	Path  string   // where the save was written
}

// Restore writes the backed-up save in dir back to its original path and
// reports which of its resources are no longer reachable.
func (b *Backer) Restore(ctx context.Context, dir string, store Store) (*Report, error) {
	idx, err := ReadIndex(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(idx.Resources))
	for u := range idx.Resources {
		urls = append(urls, u)
	}
	online := b.CheckLinks(ctx, urls)
	report := &Report{Total: len(urls), Path: idx.OriginalPath}
	for _, u := range urls {
		if !online[u] {
			report.Dead = append(report.Dead, u)
		}
	}
	sort.Strings(report.Dead)
	if len(report.Dead) > 0 {
		b.logger().Warn("resources are no longer reachable",
			zap.Int("dead", len(report.Dead)), zap.Int("total", report.Total),
			zap.Strings("urls", report.Dead))
	}

	save, err := store.Load(ctx, filepath.Join(dir, idx.Filename))
	if err != nil {
		return nil, err
	}
	if err := store.Save(ctx, save, idx.OriginalPath); err != nil {
		return nil, err
	}
	b.logger().Info("restored backup",
		zap.String("path", idx.OriginalPath),
		zap.String("outcome", "success"))
	return report, nil
}
