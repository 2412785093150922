//go:build ignore
// +build ignore

// 生成一批测试用的照片文件：每个序号有 80% 的概率被创建，
// 扩展名随机为 .JPG 或 .NEF。用法：
//
//	go run cmd/debug/generator.go -dir _debug_photos -prefix trip -count 500
package main

import (
	"PicUtils/pkg/scanner"
	"flag"
	"log"
	"math/rand"
	"os"
	"path/filepath"
)

func main() {
	dir := flag.String("dir", "_debug_photos", "输出目录")
	prefix := flag.String("prefix", "DSC", "文件名前缀")
	count := flag.Int("count", 500, "最大序号")
	flag.Parse()

	if err := os.MkdirAll(*dir, 0755); err != nil {
		log.Fatalf("无法创建目录: %v", err)
	}

	created := 0
	for i := 1; i <= *count; i++ {
		r := rand.Float64()
		if r <= 0.1 || r >= 0.9 {
			log.Printf("跳过序号 %d", i)
			continue
		}
		ext := ".NEF"
		if r < 0.5 {
			ext = ".JPG"
		}
		path := filepath.Join(*dir, scanner.FormatName(*prefix, i, ext))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("%s 无法创建: %v", path, err)
			continue
		}
		f.Close()
		created++
	}
	log.Printf("共创建 %d 个文件", created)
}
