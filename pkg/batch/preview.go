package batch

import (
	"PicUtils/pkg/hasher"
	"PicUtils/pkg/scanner"
	"PicUtils/pkg/thumbnailer"
	"os"
	"path/filepath"
	"time"
)

// PhotoEntry 是照片列表中的一项，供用户挑选要复制的序号。
type PhotoEntry struct {
	Name      string    `json:"name"`
	Extension string    `json:"extension"`
	Number    *int      `json:"number,omitempty"`
	Size      int64     `json:"size"`
	ModTime   time.Time `json:"modTime"`

	// 只有能解码的格式（JPEG/PNG/GIF/WebP）才有以下两个字段，RAW 和视频没有
	PerceptualHash string `json:"perceptualHash,omitempty"`
	Thumbnail      string `json:"thumbnail,omitempty"`
}

// Preview 列出目录中的媒体文件及其序号。withImages 为 true 时生成缩略图和感知哈希。
func (o *Orchestrator) Preview(dir string, withImages bool) ([]PhotoEntry, error) {
	photos, err := o.Parser.ListMediaFiles(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]PhotoEntry, 0, len(photos))
	for _, name := range photos {
		path := filepath.Join(dir, name)
		entry := PhotoEntry{Name: name, Extension: scanner.Extension(name)}
		if n, err := scanner.SequenceNumber(name); err == nil {
			entry.Number = &n
		}
		if info, err := os.Stat(path); err == nil {
			entry.Size = info.Size()
			entry.ModTime = info.ModTime()
		}
		if withImages {
			o.attachImage(&entry, path)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (o *Orchestrator) attachImage(entry *PhotoEntry, path string) {
	img, err := thumbnailer.Open(path)
	if err != nil {
		o.logger.Debug("无法解码图片，跳过缩略图", "file", entry.Name, "error", err)
		return
	}
	entry.PerceptualHash = hasher.CalculatePerceptualHashFromImage(img)
	thumb, err := thumbnailer.CreateBase64(img, o.Defaults.Preview.ThumbnailWidth, o.Defaults.Preview.ThumbnailHeight)
	if err != nil {
		o.logger.Warn("生成缩略图失败", "file", entry.Name, "error", err)
		return
	}
	entry.Thumbnail = thumb
}
