package app

import (
	"fmt"
	"log"
	"os/exec"
)

// ExtractAudio 將 inputPath 的音軌抽出轉成 MP3，輸出到 outputPath
// 輸入損毀或格式不支援時回傳錯誤（重跑也不會成功）
func ExtractAudio(inputPath, outputPath string) error {
	cmdArgs := []string{
		"-i", inputPath,
		"-vn", // 丟棄影像軌
		"-acodec", "libmp3lame",
		"-q:a", "2",
		"-y",
		outputPath,
	}
	log.Printf("執行 FFmpeg MP3: ffmpeg %v", cmdArgs)
	cmd := exec.Command("ffmpeg", cmdArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("FFmpeg MP3 錯誤: %v, output: %s", err, string(output))
	}
	return nil
}
